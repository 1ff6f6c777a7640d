package assinatura

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"time"

	"github.com/tintaforte/api-contratos/internal/erros"
)

// InfoCertificado é o que fica gravado no contrato antes da assinatura
// criptográfica ser produzida.
type InfoCertificado struct {
	Sujeito     string    `json:"sujeito"`
	Emissor     string    `json:"emissor"`
	ValidoDe    time.Time `json:"validoDe"`
	ValidoAte   time.Time `json:"validoAte"`
	NumeroSerie string    `json:"numeroSerie"`
}

// ValidarCertificado decodifica o certificado PEM e confere a janela de
// validade. A cadeia ICP-Brasil completa é conferida pela AC externa.
func ValidarCertificado(certPEM []byte, agora time.Time) (*InfoCertificado, error) {
	bloco, _ := pem.Decode(certPEM)
	if bloco == nil || bloco.Type != "CERTIFICATE" {
		return nil, erros.Validacao("certificado PEM ilegível")
	}
	cert, err := x509.ParseCertificate(bloco.Bytes)
	if err != nil {
		return nil, erros.Validacao("certificado inválido: " + err.Error())
	}
	if agora.Before(cert.NotBefore) || agora.After(cert.NotAfter) {
		return nil, erros.Validacao("certificado fora da janela de validade")
	}
	return &InfoCertificado{
		Sujeito:     cert.Subject.String(),
		Emissor:     cert.Issuer.String(),
		ValidoDe:    cert.NotBefore,
		ValidoAte:   cert.NotAfter,
		NumeroSerie: cert.SerialNumber.String(),
	}, nil
}

// AssinarDocumento produz a assinatura RSA-SHA256 do artefato com a chave
// privada do certificado, devolvida em base64 para embutir no documento.
func AssinarDocumento(chavePEM []byte, senha string, documento []byte) (string, error) {
	bloco, _ := pem.Decode(chavePEM)
	if bloco == nil {
		return "", erros.Validacao("chave privada PEM ilegível")
	}
	der := bloco.Bytes
	//lint:ignore SA1019 chaves ICP legadas ainda chegam cifradas no formato PEM antigo
	if x509.IsEncryptedPEMBlock(bloco) {
		decifrado, err := x509.DecryptPEMBlock(bloco, []byte(senha))
		if err != nil {
			return "", erros.Validacao("senha do certificado incorreta")
		}
		der = decifrado
	}

	chave, err := parseChavePrivada(der)
	if err != nil {
		return "", err
	}
	soma := sha256.Sum256(documento)
	assinatura, err := rsa.SignPKCS1v15(nil, chave, crypto.SHA256, soma[:])
	if err != nil {
		return "", erros.Validacao("falha ao assinar documento: " + err.Error())
	}
	return base64.StdEncoding.EncodeToString(assinatura), nil
}

func parseChavePrivada(der []byte) (*rsa.PrivateKey, error) {
	if chave, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return chave, nil
	}
	chaveQualquer, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, erros.Validacao("chave privada não reconhecida")
	}
	chave, ok := chaveQualquer.(*rsa.PrivateKey)
	if !ok {
		return nil, erros.Validacao("apenas chaves RSA são suportadas")
	}
	return chave, nil
}
