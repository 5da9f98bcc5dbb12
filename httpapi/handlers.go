package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
	remito "github.com/goliatone/go-remito"
	"github.com/goliatone/go-remito/activitymap"
)

type loginPayload struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type impersonationPayload struct {
	TargetID string `json:"target_id" form:"target_id"`
}

type tenantPayload struct {
	Name string `json:"name" form:"name"`
}

type documentPayload struct {
	Number string `json:"number" form:"number"`
}

type transitionPayload struct {
	Status   string         `json:"status" form:"status"`
	Note     string         `json:"note" form:"note"`
	Metadata map[string]any `json:"metadata"`
}

type sessionResponse struct {
	Token   string                   `json:"token"`
	Session *remito.EffectiveSession `json:"session"`
}

func badRequest(err error) error {
	return fiber.NewError(fiber.StatusBadRequest, "malformed request body: "+err.Error())
}

func (s *Server) writeSession(c *fiber.Ctx, session *remito.EffectiveSession) error {
	token, err := s.services.Codec.Encode(session)
	if err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   s.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  time.Now().Add(s.services.Codec.TTL()),
	})
	return c.JSON(sessionResponse{Token: token, Session: session})
}

func (s *Server) login(c *fiber.Ctx) error {
	payload := loginPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(err)
	}
	identity, err := s.services.Authenticator.Authenticate(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return err
	}
	session := remito.NewSession(identity)
	if s.services.Activity != nil {
		s.services.Activity.RecordEvent(c.UserContext(), remito.ActivityEvent{
			Action:      remito.ActionLogin,
			ActorID:     identity.ID,
			TenantID:    identity.TenantID,
			Description: "login",
			Metadata:    map[string]any{"ip": c.IP()},
		})
	}
	return s.writeSession(c, session)
}

func (s *Server) logout(c *fiber.Ctx) error {
	session := SessionFrom(c)
	if s.services.Activity != nil {
		s.services.Activity.RecordEvent(c.UserContext(), remito.ActivityEvent{
			Action:      remito.ActionLogout,
			ActorID:     session.Original().ID,
			TenantID:    session.Original().TenantID,
			Description: "logout",
		})
	}
	c.ClearCookie(s.cookieName)
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) me(c *fiber.Ctx) error {
	session := SessionFrom(c)
	if _, err := s.services.Guard.Resolve(session); err != nil {
		return err
	}
	return c.JSON(session)
}

func (s *Server) startImpersonation(c *fiber.Ctx) error {
	payload := impersonationPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(err)
	}
	next, err := s.services.Broker.Start(c.UserContext(), SessionFrom(c), payload.TargetID)
	if err != nil {
		return err
	}
	return s.writeSession(c, next)
}

func (s *Server) stopImpersonation(c *fiber.Ctx) error {
	next, err := s.services.Broker.Stop(c.UserContext(), SessionFrom(c))
	if err != nil {
		return err
	}
	return s.writeSession(c, next)
}

func (s *Server) listTenants(c *fiber.Ctx) error {
	tenants, err := s.services.Tenants.List(c.UserContext(), SessionFrom(c), c.QueryInt("limit"), c.QueryInt("offset"))
	if err != nil {
		return err
	}
	return c.JSON(tenants)
}

func (s *Server) createTenant(c *fiber.Ctx) error {
	payload := tenantPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(err)
	}
	tenant, err := s.services.Tenants.Create(c.UserContext(), SessionFrom(c), payload.Name)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(tenant)
}

func (s *Server) setTenantActive(active bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenant, err := s.services.Tenants.SetActive(c.UserContext(), SessionFrom(c), c.Params("tenant"), active)
		if err != nil {
			return err
		}
		return c.JSON(tenant)
	}
}

// tenantParam resolves ":tenant". The literal "me" selects the caller's tenant.
func (s *Server) tenantParam(c *fiber.Ctx) (string, error) {
	requested := c.Params("tenant")
	if requested == "me" {
		requested = ""
	}
	tenantID, _, err := s.services.Guard.TargetTenant(SessionFrom(c), requested)
	return tenantID, err
}

func (s *Server) listStatuses(c *fiber.Ctx) error {
	tenantID, err := s.tenantParam(c)
	if err != nil {
		return err
	}
	statuses, err := s.services.Registry.List(c.UserContext(), SessionFrom(c), tenantID, c.QueryBool("active"))
	if err != nil {
		return err
	}
	return c.JSON(statuses)
}

func (s *Server) createStatus(c *fiber.Ctx) error {
	tenantID, err := s.tenantParam(c)
	if err != nil {
		return err
	}
	payload := remito.CreateStatusInput{}
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(err)
	}
	status, err := s.services.Registry.Create(c.UserContext(), SessionFrom(c), tenantID, payload)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(status)
}

func (s *Server) updateStatus(c *fiber.Ctx) error {
	payload := remito.UpdateStatusInput{}
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(err)
	}
	status, err := s.services.Registry.Update(c.UserContext(), SessionFrom(c), c.Params("id"), payload)
	if err != nil {
		return err
	}
	return c.JSON(status)
}

func (s *Server) deactivateStatus(c *fiber.Ctx) error {
	status, err := s.services.Registry.Deactivate(c.UserContext(), SessionFrom(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(status)
}

func (s *Server) reactivateStatus(c *fiber.Ctx) error {
	status, err := s.services.Registry.Reactivate(c.UserContext(), SessionFrom(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(status)
}

func (s *Server) listDocuments(c *fiber.Ctx) error {
	tenantID, err := s.tenantParam(c)
	if err != nil {
		return err
	}
	docs, err := s.services.Workflow.List(c.UserContext(), SessionFrom(c), tenantID, c.QueryInt("limit"), c.QueryInt("offset"))
	if err != nil {
		return err
	}
	return c.JSON(docs)
}

func (s *Server) createDocument(c *fiber.Ctx) error {
	tenantID, err := s.tenantParam(c)
	if err != nil {
		return err
	}
	payload := documentPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(err)
	}
	doc, err := s.services.Workflow.Create(c.UserContext(), SessionFrom(c), tenantID, payload.Number)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(doc)
}

func (s *Server) getDocument(c *fiber.Ctx) error {
	doc, err := s.services.Workflow.Get(c.UserContext(), SessionFrom(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(doc)
}

func (s *Server) transition(c *fiber.Ctx) error {
	payload := transitionPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(err)
	}
	opts := []remito.TransitionOption{}
	if payload.Note != "" {
		opts = append(opts, remito.WithTransitionNote(payload.Note))
	}
	if len(payload.Metadata) > 0 {
		opts = append(opts, remito.WithTransitionMetadata(payload.Metadata))
	}
	doc, err := s.services.Workflow.Transition(c.UserContext(), SessionFrom(c), c.Params("id"), payload.Status, opts...)
	if err != nil {
		return err
	}
	return c.JSON(doc)
}

func (s *Server) history(c *fiber.Ctx) error {
	entries, err := s.services.Workflow.History(c.UserContext(), SessionFrom(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(entries)
}

func (s *Server) myActivity(c *fiber.Ctx) error {
	identity, err := s.services.Guard.Resolve(SessionFrom(c))
	if err != nil {
		return err
	}
	entries, err := s.services.Activity.Query(c.UserContext(), identity.ID, c.QueryInt("limit"), c.QueryInt("offset"))
	if err != nil {
		return err
	}
	return c.JSON(activitymap.NormalizeEntries(entries))
}

func (s *Server) tenantActivity(c *fiber.Ctx) error {
	tenantID, err := s.tenantParam(c)
	if err != nil {
		return err
	}
	entries, err := s.services.Activity.QueryTenant(c.UserContext(), SessionFrom(c), tenantID, c.QueryInt("limit"), c.QueryInt("offset"))
	if err != nil {
		return err
	}
	return c.JSON(activitymap.NormalizeEntries(entries))
}
