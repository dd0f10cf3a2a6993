package rest

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/pollbox/api.pollbox.app/poll"
)

const (
	minOptions     = 2
	maxOptions     = 10
	maxQuestionLen = 280
	maxOptionLen   = 140
	maxCommentLen  = 500
)

type api struct {
	polls *poll.Service
}

// Routes mounts the poll REST surface under /api/polls.
func Routes(app fiber.Router, svc *poll.Service) {
	h := &api{polls: svc}

	group := app.Group("/api/polls")
	group.Post("/", h.createPoll)
	group.Get("/", h.listPolls)
	group.Get("/:id", h.getPoll)
	group.Post("/:id/vote", h.votePoll)
	group.Get("/:id/results", h.pollResults)
	group.Post("/:id/react", h.reactOnPoll)
	group.Post("/:id/comment", h.commentOnPoll)
	group.Get("/:id/comments", h.pollComments)
}

// Every response carries the success flag; failures add an error
// string and, for sealed results, the unlock timestamp.

func ok(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

func respondErr(c *fiber.Ctx, err error) error {
	var hidden *poll.HiddenResultsError
	if errors.As(err, &hidden) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success":   false,
			"error":     "Results are hidden until poll expires",
			"expiresAt": hidden.ExpiresAt,
		})
	}

	switch {
	case errors.Is(err, poll.ErrPollNotFound):
		return fail(c, fiber.StatusNotFound, "Poll not found")
	case errors.Is(err, poll.ErrPollExpired):
		return fail(c, fiber.StatusGone, "Poll has expired")
	case errors.Is(err, poll.ErrInvalidOption):
		return fail(c, fiber.StatusBadRequest, "Invalid option index")
	case errors.Is(err, poll.ErrInvalidReaction):
		return fail(c, fiber.StatusBadRequest, "Unknown reaction type")
	}

	// Anything else reaches the fiber error handler and turns into a
	// logged 500.
	return err
}

type createPollRequest struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Expiry      int      `json:"expiry"`
	HideResults bool     `json:"hideResults"`
	IsPrivate   *bool    `json:"isPrivate"`
}

func (h *api) createPoll(c *fiber.Ctx) error {
	req := &createPollRequest{}
	if err := c.BodyParser(req); err != nil {
		log.Errorf("rest req, err=%v", err)
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	if strings.TrimSpace(req.Question) == "" || len(req.Question) > maxQuestionLen {
		return fail(c, fiber.StatusBadRequest, "Question is required")
	}
	if len(req.Options) < minOptions || len(req.Options) > maxOptions {
		return fail(c, fiber.StatusBadRequest, "Polls need between 2 and 10 options")
	}
	for _, option := range req.Options {
		if strings.TrimSpace(option) == "" || len(option) > maxOptionLen {
			return fail(c, fiber.StatusBadRequest, "Options must not be empty")
		}
	}

	// Polls are unlisted unless the creator opts in.
	isPrivate := true
	if req.IsPrivate != nil {
		isPrivate = *req.IsPrivate
	}

	created, err := h.polls.Create(c.Context(), req.Question, req.Options, req.Expiry, req.HideResults, isPrivate)
	if err != nil {
		return respondErr(c, err)
	}
	return ok(c, fiber.StatusCreated, created)
}

func (h *api) listPolls(c *fiber.Ctx) error {
	polls, err := h.polls.ListPublic(c.Context())
	if err != nil {
		return respondErr(c, err)
	}
	return ok(c, fiber.StatusOK, polls)
}

func (h *api) getPoll(c *fiber.Ctx) error {
	found, err := h.polls.Get(c.Context(), c.Params("id"))
	if err != nil {
		return respondErr(c, err)
	}

	return ok(c, fiber.StatusOK, struct {
		*poll.Poll
		HasExpired bool `json:"hasExpired"`
	}{found, h.polls.HasExpired(found)})
}

type voteRequest struct {
	OptionIndex *int `json:"optionIndex"`
}

func (h *api) votePoll(c *fiber.Ctx) error {
	req := &voteRequest{}
	if err := c.BodyParser(req); err != nil {
		log.Errorf("rest req, err=%v", err)
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if req.OptionIndex == nil {
		return fail(c, fiber.StatusBadRequest, "optionIndex is required")
	}

	vote, err := h.polls.Vote(c.Context(), c.Params("id"), *req.OptionIndex)
	if err != nil {
		return respondErr(c, err)
	}
	return ok(c, fiber.StatusCreated, vote)
}

func (h *api) pollResults(c *fiber.Ctx) error {
	result, err := h.polls.Results(c.Context(), c.Params("id"))
	if err != nil {
		return respondErr(c, err)
	}
	return ok(c, fiber.StatusOK, result)
}

type reactRequest struct {
	Type string `json:"type"`
}

func (h *api) reactOnPoll(c *fiber.Ctx) error {
	req := &reactRequest{}
	if err := c.BodyParser(req); err != nil {
		log.Errorf("rest req, err=%v", err)
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	updated, err := h.polls.React(c.Context(), c.Params("id"), req.Type)
	if err != nil {
		return respondErr(c, err)
	}
	return ok(c, fiber.StatusOK, updated)
}

type commentRequest struct {
	Comment string `json:"comment"`
}

func (h *api) commentOnPoll(c *fiber.Ctx) error {
	req := &commentRequest{}
	if err := c.BodyParser(req); err != nil {
		log.Errorf("rest req, err=%v", err)
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.Comment) == "" || len(req.Comment) > maxCommentLen {
		return fail(c, fiber.StatusBadRequest, "Comment text is required")
	}

	comment, err := h.polls.Comment(c.Context(), c.Params("id"), req.Comment)
	if err != nil {
		return respondErr(c, err)
	}
	return ok(c, fiber.StatusOK, comment)
}

func (h *api) pollComments(c *fiber.Ctx) error {
	comments, err := h.polls.Comments(c.Context(), c.Params("id"))
	if err != nil {
		return respondErr(c, err)
	}
	return ok(c, fiber.StatusOK, comments)
}
