package app

import (
	"crypto/tls"
	"crypto/x509"
	"net"

	"github.com/moontrade/orderflow/logger"
)

func listen(conf Config, tlscfg *tls.Config) (net.Listener, error) {
	var ln net.Listener
	var err error
	if tlscfg != nil {
		ln, err = tls.Listen("tcp", conf.Addr, tlscfg)
	} else {
		ln, err = net.Listen("tcp", conf.Addr)
	}
	if err != nil {
		return nil, err
	}
	logger.Notice("server listening at %s", ln.Addr().String())
	return ln, nil
}

func parseTLSConfig(certFile, keyFile string) (*tls.Config, error) {
	pair, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, err
	}
	tlscfg := &tls.Config{
		Certificates: []tls.Certificate{pair},
	}
	for _, cert := range pair.Certificate {
		pcert, err := x509.ParseCertificate(cert)
		if err != nil {
			return nil, err
		}
		if len(pcert.DNSNames) > 0 {
			tlscfg.ServerName = pcert.DNSNames[0]
			break
		}
	}
	return tlscfg, nil
}

func tlsInit(conf Config) (*tls.Config, error) {
	if conf.TLSCertPath == "" || conf.TLSKeyPath == "" {
		return nil, nil
	}
	return parseTLSConfig(conf.TLSCertPath, conf.TLSKeyPath)
}
