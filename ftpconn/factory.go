// Package ftpconn dials and authenticates FTP control connections. Every
// caller that needs its own data stream (each segment worker, each retry
// attempt) gets a fresh Session from a Factory.
package ftpconn

import (
	"crypto/tls"
	"fmt"
	"io"
	"time"

	"github.com/jlaffaye/ftp"

	"turboftp/config"
	"turboftp/retry"
	"turboftp/transfer"
)

// connectBaseDelay is the base inter-attempt delay for connect retries.
const connectBaseDelay = 1500 * time.Millisecond

// Factory opens sessions against one endpoint. It is safe for concurrent use;
// each Connect call is independent.
type Factory struct {
	Endpoint config.ServerEndpoint
	Timeout  time.Duration
	Retries  int

	// Logf, if set, receives retry messages.
	Logf func(format string, args ...interface{})

	// Sleep overrides the retry sleep, for tests.
	Sleep func(time.Duration)
}

// NewFactory builds a Factory from an endpoint and the engine configuration.
func NewFactory(ep config.ServerEndpoint, cfg config.Config) *Factory {
	return &Factory{
		Endpoint: ep,
		Timeout:  cfg.Timeout(),
		Retries:  cfg.ConnectRetries,
	}
}

// Connect dials and logs in, retrying transient failures. On exhaustion it
// returns a ConnectionError carrying the last underlying cause.
func (f *Factory) Connect() (*Session, error) {
	pol := retry.Policy{
		Attempts: f.Retries,
		Delay:    connectBaseDelay,
		Sleep:    f.Sleep,
		OnRetry: func(op string, attempt int, err error) {
			if f.Logf != nil {
				f.Logf("retrying %s (attempt %d failed: %v)", op, attempt, err)
			}
		},
	}

	var sess *Session
	err := pol.Do("connect "+f.Endpoint.Addr(), func() error {
		s, err := f.dialOnce()
		if err != nil {
			return err
		}
		sess = s
		return nil
	})
	if err != nil {
		return nil, &transfer.ConnectionError{Addr: f.Endpoint.Addr(), Err: err}
	}
	return sess, nil
}

// Dial satisfies transfer.Dialer.
func (f *Factory) Dial() (transfer.Session, error) {
	return f.Connect()
}

func (f *Factory) dialOnce() (*Session, error) {
	opts := []ftp.DialOption{ftp.DialWithTimeout(f.Timeout)}
	if f.Endpoint.UseTLS {
		opts = append(opts, ftp.DialWithExplicitTLS(&tls.Config{ServerName: f.Endpoint.Host}))
	}
	if !f.Endpoint.Passive {
		// Some servers advertise EPSV but firewall its ports; fall back to
		// classic PASV for them.
		opts = append(opts, ftp.DialWithDisabledEPSV(true))
	}

	conn, err := ftp.Dial(f.Endpoint.Addr(), opts...)
	if err != nil {
		return nil, fmt.Errorf("dial: %v", err)
	}
	if err := conn.Login(f.Endpoint.User, f.Endpoint.Password); err != nil {
		conn.Quit()
		return nil, fmt.Errorf("login: %v", err)
	}
	return &Session{conn: conn}, nil
}

// Session is one authenticated control connection. It satisfies both
// transfer.Session and listing.Client.
type Session struct {
	conn *ftp.ServerConn
}

// RetrFrom opens a data stream for path starting at offset.
func (s *Session) RetrFrom(path string, offset uint64) (io.ReadCloser, error) {
	return s.conn.RetrFrom(path, offset)
}

// FileSize asks the server for the size of path in bytes.
func (s *Session) FileSize(path string) (int64, error) {
	return s.conn.FileSize(path)
}

// List returns the structured listing of path.
func (s *Session) List(path string) ([]*ftp.Entry, error) {
	return s.conn.List(path)
}

// NameList returns the bare names in path.
func (s *Session) NameList(path string) ([]string, error) {
	return s.conn.NameList(path)
}

// ChangeDir changes the server-side working directory.
func (s *Session) ChangeDir(path string) error {
	return s.conn.ChangeDir(path)
}

// CurrentDir reports the server-side working directory.
func (s *Session) CurrentDir() (string, error) {
	return s.conn.CurrentDir()
}

// Quit closes the connection politely.
func (s *Session) Quit() error {
	return s.conn.Quit()
}
