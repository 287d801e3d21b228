package consumers

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/smtp"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"storefront/config"
	"storefront/payments"
)

// Mailer sends a confirmation email. The SMTP implementation below is
// the default; tests swap in a recorder.
type Mailer interface {
	SendOrderConfirmation(n payments.OrderPaidNotification) error
}

type SMTPMailer struct {
	Addr string
	From string
}

func (m *SMTPMailer) SendOrderConfirmation(n payments.OrderPaidNotification) error {
	if n.Email == "" {
		return fmt.Errorf("no recipient for order %s", n.OrderID)
	}
	body := fmt.Sprintf("To: %s\r\nFrom: %s\r\nSubject: Order %s confirmed\r\n\r\n"+
		"Thank you for your order. Payment of R%.2f was received (reference %s).\r\n",
		n.Email, m.From, n.OrderID, n.Amount, n.Reference)

	conn, err := net.DialTimeout("tcp", m.Addr, 10*time.Second)
	if err != nil {
		return err
	}
	defer conn.Close()
	host, _, _ := net.SplitHostPort(m.Addr)
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		return err
	}
	defer c.Close()
	if err := c.Mail(m.From); err != nil {
		return err
	}
	if err := c.Rcpt(n.Email); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(body)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

// StartNotificationConsumer drains the notifications queue and sends
// confirmation emails. A send failure is logged and the message
// acknowledged anyway: the payment already succeeded and the webhook
// contract forbids failing it over email.
func StartNotificationConsumer(ch *amqp.Channel, cfg *config.Config, mailer Mailer) {
	msgs, err := ch.Consume(
		cfg.NotifyQueue,
		"storefront-notify", // consumer tag
		false,               // auto-ack
		false,               // exclusive
		false,               // no-local
		false,               // no-wait
		nil,
	)
	if err != nil {
		log.Fatalf("Failed to register notification consumer: %v", err)
	}

	go func() {
		for msg := range msgs {
			processNotification(msg, mailer)
		}
	}()
}

func processNotification(msg amqp.Delivery, mailer Mailer) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in notification processing: %v", r)
		}
	}()

	var n payments.OrderPaidNotification
	if err := json.Unmarshal(msg.Body, &n); err != nil {
		log.Printf("Invalid notification payload: %s", msg.Body)
		_ = msg.Nack(false, false)
		return
	}

	if err := mailer.SendOrderConfirmation(n); err != nil {
		log.Printf("Failed to send confirmation email for order %s: %v", n.OrderID, err)
	} else {
		log.Printf("Sent confirmation email for order %s to %s", n.OrderID, n.Email)
	}
	_ = msg.Ack(false)
}
