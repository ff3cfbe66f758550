package safehttp

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCheckIP(t *testing.T) {
	tests := []struct {
		ip      string
		allowed bool
	}{
		{"127.0.0.1", false},
		{"::1", false},
		{"10.1.2.3", false},
		{"192.168.0.10", false},
		{"172.16.5.4", false},
		{"169.254.169.254", false},
		{"0.0.0.0", false},
		{"8.8.8.8", true},
		{"2606:4700:4700::1111", true},
	}
	for _, tt := range tests {
		err := CheckIP(net.ParseIP(tt.ip))
		if (err == nil) != tt.allowed {
			t.Errorf("CheckIP(%s) = %v, allowed want %v", tt.ip, err, tt.allowed)
		}
	}
	if CheckIP(nil) == nil {
		t.Error("nil IP allowed")
	}
}

func TestTransportRefusesLoopback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request reached a loopback server")
	}))
	defer srv.Close()

	client := &http.Client{Transport: Transport()}
	_, err := client.Get(srv.URL)
	if err == nil || !strings.Contains(err.Error(), "access to private IP 127.0.0.1 is denied") {
		t.Errorf("error = %v", err)
	}
}
