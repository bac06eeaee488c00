package server

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeCert writes a self-signed localhost certificate pair to dir.
func writeCert(t *testing.T, dir string) (certPath, keyPath string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "genius-gateway.local"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		DNSNames:     []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}

	certPath = filepath.Join(dir, "cert.pem")
	keyPath = filepath.Join(dir, "key.pem")
	if err := os.WriteFile(certPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600); err != nil {
		t.Fatal(err)
	}
	return certPath, keyPath
}

func TestNewTLSConfig(t *testing.T) {
	certPath, keyPath := writeCert(t, t.TempDir())

	cfg, err := NewTLSConfig(certPath, keyPath)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MinVersion != tls.VersionTLS12 || len(cfg.Certificates) != 1 {
		t.Errorf("config = %+v", cfg)
	}

	info := GetTLSInfo(cfg)
	if info["min_version"] != "TLS 1.2" || info["num_certs"] != 1 {
		t.Errorf("GetTLSInfo() = %v", info)
	}
}

func TestNewTLSConfig_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name      string
		cert, key string
		wantErr   string
	}{
		{name: "key missing", cert: "cert.pem", wantErr: "both"},
		{name: "unreadable", cert: filepath.Join(dir, "nope.pem"), key: filepath.Join(dir, "nope.key"), wantErr: "failed to load"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTLSConfig(tt.cert, tt.key)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("NewTLSConfig() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestNew_TLSServesWSS(t *testing.T) {
	certPath, keyPath := writeCert(t, t.TempDir())

	srv, err := New(&Config{Addr: "127.0.0.1:0", CertPath: certPath, KeyPath: keyPath})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(srv.URL(), "wss://") {
		t.Errorf("URL() = %q", srv.URL())
	}

	if _, err := New(&Config{Addr: "127.0.0.1:0", CertPath: certPath}); err == nil {
		t.Error("New() with only a certificate should fail")
	}
}
