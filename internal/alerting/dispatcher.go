package alerting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"WardMonitorAPI/internal/config"
	"WardMonitorAPI/internal/logger"
	"WardMonitorAPI/internal/models"
	"WardMonitorAPI/internal/vitals"
)

// Topic names used on the real-time channel. Every alert and reading
// goes to both the subject's own topic and the global one.
const TopicGlobal = "global"

func SubjectTopic(subjectID int) string {
	return fmt.Sprintf("subject:%d", subjectID)
}

// Broadcaster pushes a message to every viewer subscribed to a topic.
// Fire-and-forget: implementations must not block on slow clients.
type Broadcaster interface {
	Publish(topic string, msg models.WSMessage)
}

// Mailer delivers one notification message. Implementations honor the
// context deadline.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Directory resolves subject display names and notification overrides.
// Both lookups are enrichment only; failures degrade, never abort.
type Directory interface {
	LookupName(ctx context.Context, subjectID int) (string, error)
	LookupNotifyEmail(ctx context.Context, subjectID int) (string, error)
}

// Dispatcher fans evaluated alerts out to the delivery channels: the
// real-time broadcast (unconditional, every reading) and email (behind
// the per-pair cooldown). The two channels are independent; a failure on
// one never gates the other.
type Dispatcher struct {
	broadcaster Broadcaster
	mailer      Mailer
	directory   Directory
	limiter     *RateLimiter
	cfg         config.AlertingConfig
	log         *logger.Logger

	// Injected clock for tests.
	now func() time.Time
}

func NewDispatcher(
	broadcaster Broadcaster,
	mailer Mailer,
	directory Directory,
	limiter *RateLimiter,
	cfg config.AlertingConfig,
	log *logger.Logger,
) *Dispatcher {
	return &Dispatcher{
		broadcaster: broadcaster,
		mailer:      mailer,
		directory:   directory,
		limiter:     limiter,
		cfg:         cfg,
		log:         log,
		now:         time.Now,
	}
}

// Dispatch pushes the reading and its alerts to the broadcast channel,
// then attempts the email channel for each alert that clears the
// cooldown. Never returns an error: this is a fire-and-forget pipeline
// and a degraded channel only costs that channel's delivery.
func (d *Dispatcher) Dispatch(ctx context.Context, reading *models.VitalsReading, alerts []models.Alert) {
	if d.cfg.BroadcastEnabled && d.broadcaster != nil {
		d.broadcast(reading, alerts)
	}

	if d.cfg.EmailEnabled && d.mailer != nil && len(alerts) > 0 {
		d.email(ctx, reading, alerts)
	}
}

func (d *Dispatcher) broadcast(reading *models.VitalsReading, alerts []models.Alert) {
	subjectTopic := SubjectTopic(reading.SubjectID)

	readingMsg := models.WSMessage{
		Type:      models.WSTypeReading,
		SubjectID: reading.SubjectID,
		Timestamp: reading.Timestamp,
		Data:      reading,
	}
	d.publish(subjectTopic, readingMsg)
	d.publish(TopicGlobal, readingMsg)

	for _, alert := range alerts {
		alertMsg := models.WSMessage{
			Type:      models.WSTypeAlert,
			SubjectID: alert.SubjectID,
			Timestamp: alert.Timestamp,
			Data:      alert,
		}
		d.publish(subjectTopic, alertMsg)
		d.publish(TopicGlobal, alertMsg)
	}
}

func (d *Dispatcher) publish(topic string, msg models.WSMessage) {
	msg.Topic = topic
	d.broadcaster.Publish(topic, msg)
}

func (d *Dispatcher) email(ctx context.Context, reading *models.VitalsReading, alerts []models.Alert) {
	name := d.resolveName(ctx, reading.SubjectID)
	destination := d.resolveDestination(ctx, reading.SubjectID)
	if destination == "" {
		d.log.Warn("No notification destination for subject %d, skipping email channel", reading.SubjectID)
		return
	}

	for _, alert := range alerts {
		now := d.now()
		if !d.limiter.ShouldDeliver(alert.SubjectID, alert.VitalKind, now) {
			d.log.Debug("Email for subject %d %s suppressed by cooldown", alert.SubjectID, alert.VitalKind)
			continue
		}

		subject, body := composeAlertEmail(name, alert)

		sendCtx, cancel := context.WithTimeout(ctx, d.cfg.EmailTimeout)
		err := d.mailer.Send(sendCtx, destination, subject, body)
		cancel()

		if err != nil {
			// Delivery is not recorded, so the next evaluation of
			// this pair may retry straight away.
			d.log.Error("Failed to send alert email for subject %d %s: %v",
				alert.SubjectID, alert.VitalKind, err)
			continue
		}

		d.limiter.RecordDelivery(alert.SubjectID, alert.VitalKind, now)
		d.log.Info("Alert email sent: subject=%d kind=%s severity=%s value=%d",
			alert.SubjectID, alert.VitalKind, alert.Severity, alert.Value)
	}
}

func (d *Dispatcher) resolveName(ctx context.Context, subjectID int) string {
	name, err := d.directory.LookupName(ctx, subjectID)
	if err != nil || name == "" {
		d.log.Warn("Name lookup failed for subject %d: %v", subjectID, err)
		return fmt.Sprintf("Subject %d", subjectID)
	}
	return name
}

func (d *Dispatcher) resolveDestination(ctx context.Context, subjectID int) string {
	email, err := d.directory.LookupNotifyEmail(ctx, subjectID)
	if err == nil && email != "" {
		return email
	}
	return d.cfg.CareTeamEmail
}

func composeAlertEmail(name string, alert models.Alert) (subject, body string) {
	label := vitals.KindLabel(alert.VitalKind)

	subject = fmt.Sprintf("[%s] %s %s for %s",
		strings.ToUpper(alert.Severity), label, alert.Direction, name)

	body = fmt.Sprintf(
		"Vital sign alert for %s\n\n"+
			"Measurement:  %s\n"+
			"Value:        %d (%s, %s)\n"+
			"Recorded at:  %s\n",
		name,
		label,
		alert.Value, alert.Direction, alert.Severity,
		alert.Timestamp.Format(time.RFC3339),
	)

	if alert.Source != "" {
		body += fmt.Sprintf("Source:       %s\n", alert.Source)
	}

	return subject, body
}
