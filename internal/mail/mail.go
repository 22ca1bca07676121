// Package mail sends reservation invitations through an SMTP relay.
package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/smtp"
	"net/textproto"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/iliyamo/moviestore/internal/config"
	"github.com/iliyamo/moviestore/internal/model"
	"github.com/iliyamo/moviestore/internal/repository"
	"github.com/iliyamo/moviestore/internal/ticket"
)

// ErrNotConfigured is returned when the relay rejects our credentials.
var ErrNotConfigured = fmt.Errorf("%w: email is not configured; set MAIL_USERNAME/MAIL_PASSWORD", repository.ErrExternal)

// SendFunc has the signature of smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer delivers HTML mail. BaseURL prefixes links and image sources.
type Mailer struct {
	cfg     config.MailConfig
	baseURL string
	send    SendFunc
}

// NewMailer sends through smtp.SendMail using cfg.
func NewMailer(cfg config.MailConfig, baseURL string) *Mailer {
	return &Mailer{cfg: cfg, baseURL: strings.TrimRight(baseURL, "/"), send: smtp.SendMail}
}

// WithSender swaps the transport, used by tests.
func (m *Mailer) WithSender(fn SendFunc) *Mailer {
	m.send = fn
	return m
}

// Send delivers one HTML message to a single recipient.
func (m *Mailer) Send(to, subject, htmlBody string) error {
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	msg := []byte(
		"From: " + m.cfg.From + "\r\n" +
			"To: " + to + "\r\n" +
			"Subject: " + subject + "\r\n" +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=\"utf-8\"\r\n" +
			"\r\n" +
			htmlBody + "\r\n")
	err := m.send(m.cfg.Host+":"+m.cfg.Port, auth, m.cfg.From, []string{to}, msg)
	if err == nil {
		return nil
	}
	var tp *textproto.Error
	if errors.As(err, &tp) && tp.Code == 535 {
		return ErrNotConfigured
	}
	return fmt.Errorf("%w: send mail to %s: %v", repository.ErrExternal, to, err)
}

// Invitation is one reservation shared with a list of friends.
type Invitation struct {
	Host       string
	Recipients []string
	Ticket     ticket.Data
	QRPath     string
}

var invitationTmpl = template.Must(template.New("invite").Parse(`<html><body style="font-family:sans-serif">
<h2>You're invited to the movies!</h2>
<p><strong>{{.Host}}</strong> invited you to watch <strong>{{.Movie}}</strong>.</p>
<table>
<tr><td>Cinema</td><td>{{.Cinema}}</td></tr>
<tr><td>Screen</td><td>{{.Screen}}</td></tr>
<tr><td>Date</td><td>{{.Date}}</td></tr>
<tr><td>Time</td><td>{{.Time}}</td></tr>
<tr><td>Seats</td><td>{{.Seats}}</td></tr>
</table>
<p><a href="{{.CheckinURL}}">Check in</a></p>
{{if .QRURL}}<p><img src="{{.QRURL}}" alt="Ticket QR code" width="240" height="240"></p>{{end}}
</body></html>`))

// InvitationBody renders the HTML body of an invitation.
func (m *Mailer) InvitationBody(inv Invitation) (string, error) {
	screen := inv.Ticket.ScreenName
	if screen == "" {
		screen = "TBA"
	}
	qr := ""
	if inv.QRPath != "" {
		qr = m.baseURL + inv.QRPath
	}
	var buf bytes.Buffer
	err := invitationTmpl.Execute(&buf, map[string]string{
		"Host":       inv.Host,
		"Movie":      inv.Ticket.MovieTitle,
		"Cinema":     inv.Ticket.CinemaName,
		"Screen":     screen,
		"Date":       model.FormatDay(inv.Ticket.Date),
		"Time":       model.ShortClock(inv.Ticket.StartAt),
		"Seats":      inv.Ticket.SeatLabels,
		"CheckinURL": fmt.Sprintf("%s/checkin/%d", m.baseURL, inv.Ticket.ReservationID),
		"QRURL":      qr,
	})
	return buf.String(), err
}

// Invite mails every recipient in order and stops at the first failure,
// returning how many were sent before it.
func (m *Mailer) Invite(ctx context.Context, inv Invitation) (int, error) {
	body, err := m.InvitationBody(inv)
	if err != nil {
		return 0, err
	}
	subject := "Movie Invitation: " + inv.Ticket.MovieTitle
	sent := 0
	for _, to := range inv.Recipients {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if err := m.Send(to, subject, body); err != nil {
			return sent, err
		}
		sent++
	}
	log.Info().Uint64("reservation_id", inv.Ticket.ReservationID).Int("recipients", sent).Msg("invitations sent")
	return sent, nil
}

// ParseRecipients splits a comma separated address list, lowercases and
// de-duplicates it.
func ParseRecipients(raw string) []string {
	var out []string
	seen := map[string]bool{}
	for _, p := range strings.Split(raw, ",") {
		addr := strings.ToLower(strings.TrimSpace(p))
		if addr == "" || seen[addr] {
			continue
		}
		seen[addr] = true
		out = append(out, addr)
	}
	return out
}
