package ldap

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// buildTLSConfig assembles the client TLS configuration for server.
func buildTLSConfig(cfg *ConnectionConfig, server *ServerInfo) (*tls.Config, error) {
	var tc *tls.Config
	if cfg.TLSConfig != nil {
		tc = cfg.TLSConfig.Clone()
	} else {
		tc = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	if tc.ServerName == "" {
		tc.ServerName = server.Host
	}
	if cfg.SkipTLSVerify {
		tc.InsecureSkipVerify = true
	}

	if cfg.TLSCACertFile != "" || cfg.TLSCACert != "" {
		pem := []byte(cfg.TLSCACert)
		if cfg.TLSCACertFile != "" {
			data, err := os.ReadFile(cfg.TLSCACertFile)
			if err != nil {
				return nil, fmt.Errorf("failed to read CA certificate file: %w", err)
			}
			pem = data
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no valid CA certificates found")
		}
		tc.RootCAs = pool
	}

	if cfg.TLSClientCertFile != "" {
		if cfg.TLSClientKeyFile == "" {
			return nil, fmt.Errorf("client key file is required with a client certificate")
		}
		cert, err := tls.LoadX509KeyPair(cfg.TLSClientCertFile, cfg.TLSClientKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tc.Certificates = []tls.Certificate{cert}
	}

	return tc, nil
}
