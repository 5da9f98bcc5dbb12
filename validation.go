package remito

import (
	"errors"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
	maxStatusName    = 64
	maxDocumentNo    = 64
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Page is a validated limit/offset pair.
type Page struct {
	Limit  int
	Offset int
}

// NewPage applies the default limit when limit is zero and rejects
// negative or oversized values.
func NewPage(limit, offset int) (Page, error) {
	if limit == 0 {
		limit = DefaultPageLimit
	}
	page := Page{Limit: limit, Offset: offset}
	err := validation.ValidateStruct(&page,
		validation.Field(&page.Limit, validation.Min(1), validation.Max(MaxPageLimit)),
		validation.Field(&page.Offset, validation.Min(0)),
	)
	if err != nil {
		return Page{}, raise(ErrInvalidInput, "invalid pagination", map[string]any{"fields": err.Error()})
	}
	return page, nil
}

// CreateStatusInput describes a new status definition.
type CreateStatusInput struct {
	Name      string `json:"name"`
	Color     string `json:"color"`
	IsDefault bool   `json:"is_default"`
	SortOrder *int   `json:"sort_order,omitempty"`
}

// Validate checks the name and color. Names are kept exactly as given
// after trimming surrounding space.
func (in *CreateStatusInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Color = strings.TrimSpace(in.Color)
	err := validation.ValidateStruct(in,
		validation.Field(&in.Name, validation.Required, validation.RuneLength(1, maxStatusName)),
		validation.Field(&in.Color, validation.Required, validation.Match(colorPattern)),
		validation.Field(&in.SortOrder, validation.By(nonNegative)),
	)
	if err != nil {
		return raise(ErrInvalidInput, "invalid status definition", map[string]any{"fields": err.Error()})
	}
	return nil
}

// UpdateStatusInput changes presentation attributes of a definition. Nil
// fields are left untouched. The name is immutable.
type UpdateStatusInput struct {
	Color     *string `json:"color,omitempty"`
	SortOrder *int    `json:"sort_order,omitempty"`
	IsDefault *bool   `json:"is_default,omitempty"`
}

func (in *UpdateStatusInput) Validate() error {
	if in.Color != nil {
		trimmed := strings.TrimSpace(*in.Color)
		in.Color = &trimmed
	}
	err := validation.ValidateStruct(in,
		validation.Field(&in.Color, validation.By(func(value any) error {
			color, _ := value.(*string)
			if color != nil && !colorPattern.MatchString(*color) {
				return errors.New("must be a #RRGGBB color")
			}
			return nil
		})),
		validation.Field(&in.SortOrder, validation.By(nonNegative)),
	)
	if err != nil {
		return raise(ErrInvalidInput, "invalid status update", map[string]any{"fields": err.Error()})
	}
	if in.Color == nil && in.SortOrder == nil && in.IsDefault == nil {
		return raise(ErrInvalidInput, "nothing to update", nil)
	}
	return nil
}

func nonNegative(value any) error {
	n, _ := value.(*int)
	if n != nil && *n < 0 {
		return errors.New("must be no less than 0")
	}
	return nil
}

func validateDocumentNumber(number string) (string, error) {
	number = strings.TrimSpace(number)
	err := validation.Validate(number, validation.Required, validation.RuneLength(1, maxDocumentNo))
	if err != nil {
		return "", raise(ErrInvalidInput, "invalid remito number", map[string]any{"number": err.Error()})
	}
	return number, nil
}

func validateStatusName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if err := validation.Validate(name, validation.Required); err != nil {
		return "", raise(ErrInvalidStatus, "status is required", nil)
	}
	return name, nil
}
