package ftpconn

import (
	"testing"
	"time"

	"turboftp/config"
)

func TestNewFactoryTakesEngineConfig(t *testing.T) {
	cfg := config.Default()
	ep := config.ServerEndpoint{Host: "ftp.example.com", Port: 21, User: "u", Password: "p"}

	f := NewFactory(ep, cfg)
	if f.Timeout != 15*time.Second {
		t.Errorf("timeout: got %v", f.Timeout)
	}
	if f.Retries != 3 {
		t.Errorf("retries: got %d", f.Retries)
	}
	if f.Endpoint.Addr() != "ftp.example.com:21" {
		t.Errorf("addr: got %s", f.Endpoint.Addr())
	}
}
