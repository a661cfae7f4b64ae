// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package misp

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"time"

	"github.com/cloudflare/cfssl/crypto/pkcs7"
)

// certBlockType is the PEM block type accepted for certificate input.
const certBlockType = "CERTIFICATE"

// CertificateSummary describes a parsed certificate for tool reports.
type CertificateSummary struct {
	Subject   string
	Issuer    string
	NotBefore time.Time
	NotAfter  time.Time
	SHA256    string
	SHA1      string
	MD5       string
}

// Expired reports whether the certificate is past its validity window.
func (s *CertificateSummary) Expired() bool { return time.Now().After(s.NotAfter) }

// DeriveCertificateAttributes parses an X.509 certificate (PEM, DER, or
// PKCS7) and derives the MISP attribute payloads for its fingerprints:
// x509-fingerprint-sha256, x509-fingerprint-sha1 and x509-fingerprint-md5,
// each under the Network activity category with to_ids set. The returned
// summary backs the human-readable tool report.
//
// Parameters:
//   - data: Raw certificate bytes in PEM, DER, or PKCS7 form
//   - comment: Optional caller comment appended to the generated one
//
// Returns:
//   - []AttributePayload: One payload per fingerprint algorithm
//   - *CertificateSummary: Parsed subject, issuer, validity and digests
//   - error: KindValidation when the input is not a certificate
func DeriveCertificateAttributes(data []byte, comment string) ([]AttributePayload, *CertificateSummary, error) {
	const op = "misp: derive certificate attributes"

	cert, err := decodeCertificate(data)
	if err != nil {
		return nil, nil, newError(KindValidation, op, "the input could not be parsed as an X.509 certificate", err)
	}

	sum256 := sha256.Sum256(cert.Raw)
	sum1 := sha1.Sum(cert.Raw)
	summd5 := md5.Sum(cert.Raw)

	summary := &CertificateSummary{
		Subject:   cert.Subject.String(),
		Issuer:    cert.Issuer.String(),
		NotBefore: cert.NotBefore,
		NotAfter:  cert.NotAfter,
		SHA256:    hex.EncodeToString(sum256[:]),
		SHA1:      hex.EncodeToString(sum1[:]),
		MD5:       hex.EncodeToString(summd5[:]),
	}

	generated := fmt.Sprintf("Certificate %s, expires %s", cert.Subject.CommonName, cert.NotAfter.UTC().Format(DateLayout))
	if comment != "" {
		generated += " - " + comment
	}

	payloads := []AttributePayload{
		{Type: "x509-fingerprint-sha256", Value: summary.SHA256, Category: "Network activity", ToIDS: true, Comment: generated},
		{Type: "x509-fingerprint-sha1", Value: summary.SHA1, Category: "Network activity", ToIDS: true, Comment: generated},
		{Type: "x509-fingerprint-md5", Value: summary.MD5, Category: "Network activity", ToIDS: true, Comment: generated},
	}
	return payloads, summary, nil
}

// decodeCertificate accepts PEM, DER, and PKCS7 input, in that order of
// preference. PKCS7 parsing uses Cloudflare's library; the first certificate
// of a bundle wins.
func decodeCertificate(data []byte) (*x509.Certificate, error) {
	if block, _ := pem.Decode(data); block != nil {
		if block.Type != certBlockType {
			return nil, fmt.Errorf("unexpected PEM block type %q", block.Type)
		}
		data = block.Bytes
	}

	cert, err := x509.ParseCertificate(data)
	if err == nil {
		return cert, nil
	}

	p, perr := pkcs7.ParsePKCS7(data)
	if perr != nil {
		return nil, err
	}
	if len(p.Content.SignedData.Certificates) == 0 {
		return nil, fmt.Errorf("no certificates found in PKCS7 data")
	}
	return p.Content.SignedData.Certificates[0], nil
}
