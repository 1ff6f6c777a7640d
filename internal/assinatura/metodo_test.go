package assinatura_test

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/tintaforte/api-contratos/internal/assinatura"
	"github.com/tintaforte/api-contratos/internal/contrato"
	"github.com/tintaforte/api-contratos/internal/erros"
)

func contratoAguardando(t *testing.T) *contrato.Contrato {
	t.Helper()
	return &contrato.Contrato{
		Titulo:           "Pintura interna",
		ContratanteEmail: "cliente@example.com",
		PrestadorEmail:   "pintor@example.com",
		Status:           contrato.StatusAguardandoAssinatura,
	}
}

// parDeChaves gera um certificado autoassinado e devolve os dois PEMs.
func parDeChaves(t *testing.T, notBefore, notAfter time.Time) (certPEM, chavePEM []byte, chave *rsa.PrivateKey) {
	t.Helper()
	chave, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("gerar chave: %v", err)
	}
	modelo := x509.Certificate{
		SerialNumber: big.NewInt(42),
		Subject:      pkix.Name{CommonName: "CLIENTE DA SILVA:12345678900"},
		NotBefore:    notBefore,
		NotAfter:     notAfter,
	}
	der, err := x509.CreateCertificate(rand.Reader, &modelo, &modelo, &chave.PublicKey, chave)
	if err != nil {
		t.Fatalf("criar certificado: %v", err)
	}
	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	chavePEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(chave)})
	return certPEM, chavePEM, chave
}

func TestDispatcherMetodoDesconhecido(t *testing.T) {
	d := assinatura.NewDispatcher(assinatura.NewServicoToken("s", time.Minute))
	if _, err := d.Resolver("assinatura_por_fax"); !erros.EhTipo(err, erros.TipoValidacao) {
		t.Fatalf("método desconhecido deveria falhar com validação, veio %v", err)
	}
}

func TestDispatcherSignatarioNaoEhParte(t *testing.T) {
	d := assinatura.NewDispatcher(assinatura.NewServicoToken("s", time.Minute))
	c := contratoAguardando(t)

	_, _, err := d.Validar(contrato.MetodoClickOnly, c, assinatura.Entrada{
		EmailSignatario: "intruso@example.com",
	}, time.Now())
	if !erros.EhTipo(err, erros.TipoProibido) {
		t.Fatalf("terceiro assinando deveria ser proibido, veio %v", err)
	}
}

func TestMetodoClick(t *testing.T) {
	d := assinatura.NewDispatcher(assinatura.NewServicoToken("s", time.Minute))
	c := contratoAguardando(t)
	agora := time.Date(2026, 9, 2, 10, 0, 0, 0, time.UTC)

	metodo, md, err := d.Validar(contrato.MetodoClickOnly, c, assinatura.Entrada{
		EmailSignatario: "cliente@example.com",
		IP:              "10.0.0.1",
	}, agora)
	if err != nil {
		t.Fatalf("Validar: %v", err)
	}
	if md["method"] != contrato.MetodoClickOnly || md["ip"] != "10.0.0.1" {
		t.Fatalf("metadados incompletos: %v", md)
	}

	prova, err := metodo.Prova([]byte("doc"), assinatura.Entrada{})
	if err != nil || prova != "consentimento-clique" {
		t.Fatalf("prova = %q, %v", prova, err)
	}
}

func TestMetodoTokenFluxoCompleto(t *testing.T) {
	tokens := assinatura.NewServicoToken("segredo", 30*time.Minute)
	d := assinatura.NewDispatcher(tokens)
	c := contratoAguardando(t)

	token, expira, err := tokens.Gerar("cliente@example.com", "123")
	if err != nil {
		t.Fatalf("Gerar: %v", err)
	}
	c.DefinirToken(token, expira)

	_, md, err := d.Validar(contrato.MetodoTokenEmail, c, assinatura.Entrada{
		EmailSignatario: "cliente@example.com",
		Token:           token,
	}, time.Now())
	if err != nil {
		t.Fatalf("Validar: %v", err)
	}
	if md["token_verified"] != true || md["cpf"] != "123" {
		t.Fatalf("metadados do token incompletos: %v", md)
	}
}

func TestMetodoTokenNaoCorresponde(t *testing.T) {
	tokens := assinatura.NewServicoToken("segredo", 30*time.Minute)
	d := assinatura.NewDispatcher(tokens)
	c := contratoAguardando(t)

	emitido, expira, _ := tokens.Gerar("cliente@example.com", "")
	c.DefinirToken(emitido, expira)
	outro, _, _ := tokens.Gerar("cliente@example.com", "")

	_, _, err := d.Validar(contrato.MetodoTokenEmail, c, assinatura.Entrada{
		EmailSignatario: "cliente@example.com",
		Token:           outro,
	}, time.Now())
	if !erros.EhTipo(err, erros.TipoValidacao) {
		t.Fatalf("token diferente do emitido deveria falhar, veio %v", err)
	}
}

func TestMetodoTokenExpiradoNoContrato(t *testing.T) {
	tokens := assinatura.NewServicoToken("segredo", 30*time.Minute)
	d := assinatura.NewDispatcher(tokens)
	c := contratoAguardando(t)

	token, _, _ := tokens.Gerar("cliente@example.com", "")
	c.DefinirToken(token, time.Now().Add(-time.Minute))

	_, _, err := d.Validar(contrato.MetodoTokenEmail, c, assinatura.Entrada{
		EmailSignatario: "cliente@example.com",
		Token:           token,
	}, time.Now())
	if !erros.EhTipo(err, erros.TipoValidacao) || !strings.Contains(err.Error(), "expirado") {
		t.Fatalf("token vencido deveria falhar, veio %v", err)
	}
}

func TestMetodoTokenEmailDivergente(t *testing.T) {
	tokens := assinatura.NewServicoToken("segredo", 30*time.Minute)
	d := assinatura.NewDispatcher(tokens)
	c := contratoAguardando(t)

	// Token emitido para o cliente, mas quem tenta assinar é o prestador.
	token, expira, _ := tokens.Gerar("cliente@example.com", "")
	c.DefinirToken(token, expira)

	_, _, err := d.Validar(contrato.MetodoTokenEmail, c, assinatura.Entrada{
		EmailSignatario: "pintor@example.com",
		Token:           token,
	}, time.Now())
	if !erros.EhTipo(err, erros.TipoValidacao) {
		t.Fatalf("email divergente do token deveria falhar, veio %v", err)
	}
}

func TestMetodoICPValidaCertificado(t *testing.T) {
	d := assinatura.NewDispatcher(assinatura.NewServicoToken("s", time.Minute))
	c := contratoAguardando(t)
	agora := time.Now()
	certPEM, chavePEM, chave := parDeChaves(t, agora.Add(-time.Hour), agora.Add(time.Hour))

	metodo, md, err := d.Validar(contrato.MetodoICPUpload, c, assinatura.Entrada{
		EmailSignatario: "cliente@example.com",
		CertificadoPEM:  certPEM,
	}, agora)
	if err != nil {
		t.Fatalf("Validar: %v", err)
	}
	info, ok := md["certificate_info"].(*assinatura.InfoCertificado)
	if !ok {
		t.Fatalf("certificate_info ausente: %v", md)
	}
	if !strings.Contains(info.Sujeito, "CLIENTE DA SILVA") {
		t.Fatalf("sujeito = %q", info.Sujeito)
	}

	documento := []byte("artefato do contrato")
	prova, err := metodo.Prova(documento, assinatura.Entrada{ChavePEM: chavePEM})
	if err != nil {
		t.Fatalf("Prova: %v", err)
	}
	b64, ok := strings.CutPrefix(prova, "icp-brasil;sha256-rsa=")
	if !ok {
		t.Fatalf("prova fora do formato: %q", prova)
	}
	bruta, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		t.Fatalf("assinatura ilegível: %v", err)
	}
	soma := sha256.Sum256(documento)
	if err := rsa.VerifyPKCS1v15(&chave.PublicKey, crypto.SHA256, soma[:], bruta); err != nil {
		t.Fatalf("assinatura não confere: %v", err)
	}
}

func TestMetodoICPCertificadoVencido(t *testing.T) {
	d := assinatura.NewDispatcher(assinatura.NewServicoToken("s", time.Minute))
	c := contratoAguardando(t)
	agora := time.Now()
	certPEM, _, _ := parDeChaves(t, agora.Add(-2*time.Hour), agora.Add(-time.Hour))

	_, _, err := d.Validar(contrato.MetodoICPDireto, c, assinatura.Entrada{
		EmailSignatario: "cliente@example.com",
		CertificadoPEM:  certPEM,
	}, agora)
	if !erros.EhTipo(err, erros.TipoValidacao) {
		t.Fatalf("certificado vencido deveria falhar, veio %v", err)
	}
}

func TestMetodoICPSemCertificado(t *testing.T) {
	d := assinatura.NewDispatcher(assinatura.NewServicoToken("s", time.Minute))
	c := contratoAguardando(t)

	_, _, err := d.Validar(contrato.MetodoICPUpload, c, assinatura.Entrada{
		EmailSignatario: "cliente@example.com",
	}, time.Now())
	if !erros.EhTipo(err, erros.TipoValidacao) {
		t.Fatalf("upload sem certificado deveria falhar, veio %v", err)
	}
}
