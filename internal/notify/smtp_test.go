package notify

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/juststeveking/lookout/internal/config"
)

// smtpServer accepts connections on a loopback port and hands each one to
// handle. It returns the resolved email settings pointing at it.
func smtpServer(t *testing.T, handle func(net.Conn)) config.EmailConfig {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.SetDeadline(time.Now().Add(5 * time.Second))
			go func() {
				defer conn.Close()
				handle(conn)
			}()
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return config.EmailConfig{
		SMTPServer:       addr.IP.String(),
		SMTPPort:         addr.Port,
		SenderEmail:      "monitor@example.com",
		SenderCredential: "app-password",
		RecipientEmail:   "runner@example.com",
		Timeout:          300 * time.Millisecond,
	}
}

func sendWithin(t *testing.T, ec config.EmailConfig, limit time.Duration) error {
	t.Helper()

	done := make(chan error, 1)
	go func() {
		done <- SMTPSender{}.Send(context.Background(), ec, alert())
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(limit):
		t.Fatalf("Send did not return within %s", limit)
		return nil
	}
}

func TestSMTPSenderSilentServerTimesOut(t *testing.T) {
	ec := smtpServer(t, func(conn net.Conn) {
		// accept and never greet
		buf := make([]byte, 512)
		for {
			if _, err := conn.Read(buf); err != nil {
				return
			}
		}
	})

	start := time.Now()
	err := sendWithin(t, ec, 5*time.Second)
	if err == nil {
		t.Fatal("Expected an error from a server that never greets")
	}

	var de *DeliveryError
	if !errors.As(err, &de) {
		t.Fatalf("Expected *DeliveryError, got %T: %v", err, err)
	}
	if de.Stage != StageConnect {
		t.Errorf("Expected stage %s, got %s", StageConnect, de.Stage)
	}

	var netErr net.Error
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Errorf("Expected a network timeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("Send took %s, expected it to be bounded by the 300ms timeout", elapsed)
	}
}

func TestSMTPSenderRequiresStartTLS(t *testing.T) {
	ec := smtpServer(t, func(conn net.Conn) {
		r := bufio.NewReader(conn)
		conn.Write([]byte("220 mail.example.com ESMTP\r\n"))
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			switch cmd := strings.ToUpper(strings.TrimSpace(line)); {
			case strings.HasPrefix(cmd, "EHLO"):
				conn.Write([]byte("250-mail.example.com\r\n250 AUTH PLAIN\r\n"))
			case strings.HasPrefix(cmd, "QUIT"):
				conn.Write([]byte("221 bye\r\n"))
				return
			default:
				conn.Write([]byte("502 not implemented\r\n"))
			}
		}
	})
	ec.Timeout = 2 * time.Second

	err := sendWithin(t, ec, 5*time.Second)
	if err == nil {
		t.Fatal("Expected an error from a server without STARTTLS")
	}

	var de *DeliveryError
	if !errors.As(err, &de) {
		t.Fatalf("Expected *DeliveryError, got %T: %v", err, err)
	}
	if de.Stage != StageConnect {
		t.Errorf("Expected stage %s, got %s (%v)", StageConnect, de.Stage, err)
	}
	if !strings.Contains(err.Error(), "STARTTLS") {
		t.Errorf("Expected STARTTLS in error, got %v", err)
	}
	if IsAuthError(err) {
		t.Error("A missing STARTTLS extension is not an auth failure")
	}
}

func TestSMTPSenderRejectsBadAddressBeforeDialing(t *testing.T) {
	accepted := make(chan struct{}, 1)
	ec := smtpServer(t, func(net.Conn) {
		accepted <- struct{}{}
	})
	ec.RecipientEmail = "not an address"

	err := sendWithin(t, ec, 5*time.Second)

	var de *DeliveryError
	if !errors.As(err, &de) || de.Stage != StageCompose {
		t.Fatalf("Expected compose DeliveryError, got %v", err)
	}

	select {
	case <-accepted:
		t.Error("Expected no connection for an invalid message")
	case <-time.After(100 * time.Millisecond):
	}
}
