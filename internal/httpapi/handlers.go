package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/mailvault"
	"github.com/dmitrymomot/mailvault/pkg/job"
	"github.com/dmitrymomot/mailvault/pkg/sanitizer"
	"github.com/dmitrymomot/mailvault/pkg/store"
)

// resendDedupWindow drops repeated resend requests for one message.
const resendDedupWindow = time.Minute

type sentSummary struct {
	CreatedAt time.Time `json:"created_at"`
	To        string    `json:"to"`
	From      string    `json:"from"`
	Subject   string    `json:"subject"`
	ID        uuid.UUID `json:"id"`
	TestMode  bool      `json:"test_mode"`
}

type sentDetail struct {
	sentSummary
	CC   string `json:"cc,omitempty"`
	BCC  string `json:"bcc,omitempty"`
	Body string `json:"body"`
	Text string `json:"text"`
}

type deliveryView struct {
	SentAt     time.Time  `json:"sent_at"`
	ResentFrom *uuid.UUID `json:"resent_from,omitempty"`
	State      string     `json:"state"`
	Subject    string     `json:"subject,omitempty"`
	To         []string   `json:"to,omitempty"`
	ID         uuid.UUID  `json:"id"`
	TestMode   bool       `json:"test_mode"`
}

func summarize(m *store.SentMessage) sentSummary {
	return sentSummary{
		CreatedAt: m.CreatedAt,
		To:        m.To,
		From:      m.From,
		Subject:   m.Subject,
		ID:        m.ID,
		TestMode:  m.TestMode,
	}
}

func viewDelivery(d *mailvault.Delivery) deliveryView {
	v := deliveryView{
		SentAt:   d.SentAt,
		State:    d.State.String(),
		ID:       d.ID,
		TestMode: d.TestMode,
	}
	if d.ResentFrom != uuid.Nil {
		from := d.ResentFrom
		v.ResentFrom = &from
	}
	if d.Email != nil {
		v.Subject = d.Email.Subject
		v.To = d.Email.To
	}
	return v
}

func (s *Server) listSent(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), 50)
	if err != nil {
		return badRequest("limit must be a number")
	}
	offset, err := intParam(q.Get("offset"), 0)
	if err != nil {
		return badRequest("offset must be a number")
	}

	msgs, err := s.sent.List(r.Context(), store.ListParams{
		Recipient: q.Get("recipient"),
		Limit:     min(limit, 500),
		Offset:    max(offset, 0),
	})
	if err != nil {
		return err
	}

	items := make([]sentSummary, len(msgs))
	for i, m := range msgs {
		items[i] = summarize(m)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
	return nil
}

func (s *Server) getSent(w http.ResponseWriter, r *http.Request) error {
	id, err := idParam(r)
	if err != nil {
		return err
	}
	m, err := s.sent.Get(r.Context(), id)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, sentDetail{
		sentSummary: summarize(m),
		CC:          m.CC,
		BCC:         m.BCC,
		Body:        sanitizer.SanitizeHTML(m.Body),
		Text:        sanitizer.PlainText(m.Body),
	})
	return nil
}

func (s *Server) resend(w http.ResponseWriter, r *http.Request) error {
	id, err := idParam(r)
	if err != nil {
		return err
	}

	if s.enqueuer == nil {
		d, err := s.pipeline.Resend(r.Context(), id)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, viewDelivery(d))
		return nil
	}

	if _, err := s.sent.Get(r.Context(), id); err != nil {
		return err
	}
	err = s.enqueuer.Enqueue(r.Context(), mailvault.ResendTaskName,
		mailvault.ResendPayload{SentMessageID: id},
		job.UniqueKey(id.String()),
		job.UniqueFor(resendDedupWindow),
	)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "queued", "sent_message_id": id})
	return nil
}

func (s *Server) cleanup(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	retention, err := mailvault.ParseRetention(q.Get("count"), q.Get("unit"))
	if err != nil {
		return err
	}

	n, err := s.pipeline.Cleanup(r.Context(), retention)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": n, "retention": retention.String()})
	return nil
}

func (s *Server) sendTest(w http.ResponseWriter, r *http.Request) error {
	d, err := s.pipeline.SendTest(r.Context(), chi.URLParam(r, "identifier"), r.URL.Query().Get("to"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, viewDelivery(d))
	return nil
}

func idParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, badRequest("invalid message id")
	}
	return id, nil
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
