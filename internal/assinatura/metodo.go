// Package assinatura despacha a assinatura de contratos entre as quatro
// estratégias suportadas e guarda os portões de verificação (token de
// email, certificado ICP) que liberam a transição para signed.
package assinatura

import (
	"fmt"
	"time"

	"github.com/tintaforte/api-contratos/internal/contrato"
	"github.com/tintaforte/api-contratos/internal/erros"
)

// Entrada é o payload de uma tentativa de assinatura.
type Entrada struct {
	EmailSignatario  string `json:"signerEmail"`
	CPF              string `json:"cpf,omitempty"`
	Token            string `json:"token,omitempty"`
	CertificadoPEM   []byte `json:"certificado,omitempty"`
	ChavePEM         []byte `json:"chavePrivada,omitempty"`
	SenhaCertificado string `json:"senhaCertificado,omitempty"`
	ImagemAssinatura string `json:"imagemAssinatura,omitempty"`
	IP               string `json:"-"`
}

// Metadados é o registro método-específico gravado no contrato.
type Metadados map[string]any

// Metodo é a estratégia de um método de assinatura: valida os portões do
// método e produz a prova a embutir no documento.
type Metodo interface {
	Nome() string
	Validar(c *contrato.Contrato, e Entrada, agora time.Time) (Metadados, error)
	Prova(artefato []byte, e Entrada) (string, error)
}

// Dispatcher resolve o método pedido (ou o padrão) e aplica as
// pré-condições comuns antes da validação específica.
type Dispatcher struct {
	Token *ServicoToken
}

func NewDispatcher(token *ServicoToken) *Dispatcher {
	return &Dispatcher{Token: token}
}

// Resolver devolve a estratégia para o nome do método.
func (d *Dispatcher) Resolver(nome string) (Metodo, error) {
	switch nome {
	case contrato.MetodoClickOnly:
		return metodoClick{}, nil
	case contrato.MetodoTokenEmail:
		return metodoToken{servico: d.Token}, nil
	case contrato.MetodoICPUpload:
		return metodoICP{nome: contrato.MetodoICPUpload}, nil
	case contrato.MetodoICPDireto:
		return metodoICP{nome: contrato.MetodoICPDireto}, nil
	}
	return nil, erros.Validacao("método de assinatura desconhecido: " + nome)
}

// Validar aplica a pré-condição comum (signatário é parte do contrato) e
// em seguida os portões do método escolhido.
func (d *Dispatcher) Validar(nome string, c *contrato.Contrato, e Entrada, agora time.Time) (Metodo, Metadados, error) {
	metodo, err := d.Resolver(nome)
	if err != nil {
		return nil, nil, err
	}
	if !c.EhParte(e.EmailSignatario) {
		return nil, nil, erros.Proibido("email do signatário não pertence às partes do contrato")
	}
	metadados, err := metodo.Validar(c, e, agora)
	if err != nil {
		return nil, nil, err
	}
	return metodo, metadados, nil
}

func metadadosBase(nome string, e Entrada, agora time.Time) Metadados {
	return Metadados{
		"method":    nome,
		"email":     e.EmailSignatario,
		"timestamp": agora.UTC().Format(time.RFC3339),
		"ip":        e.IP,
	}
}

// metodoClick: consentimento por clique, sem verificação extra.
type metodoClick struct{}

func (metodoClick) Nome() string { return contrato.MetodoClickOnly }

func (metodoClick) Validar(_ *contrato.Contrato, e Entrada, agora time.Time) (Metadados, error) {
	return metadadosBase(contrato.MetodoClickOnly, e, agora), nil
}

func (metodoClick) Prova(_ []byte, e Entrada) (string, error) {
	if e.ImagemAssinatura != "" {
		return "consentimento-clique; imagem=" + e.ImagemAssinatura, nil
	}
	return "consentimento-clique", nil
}

// metodoToken: exige token de email previamente emitido e não expirado,
// amarrado ao mesmo email do signatário.
type metodoToken struct {
	servico *ServicoToken
}

func (metodoToken) Nome() string { return contrato.MetodoTokenEmail }

func (m metodoToken) Validar(c *contrato.Contrato, e Entrada, agora time.Time) (Metadados, error) {
	if e.Token == "" {
		return nil, erros.Validacao("token é obrigatório para o método de verificação por email")
	}
	if c.TokenEmail == nil || *c.TokenEmail != e.Token {
		return nil, erros.Validacao("token não corresponde ao emitido para este contrato")
	}
	if c.TokenExpira == nil || agora.After(*c.TokenExpira) {
		return nil, erros.Validacao("token expirado")
	}
	claims, err := m.servico.Validar(e.Token)
	if err != nil {
		return nil, err
	}
	if claims.Email != e.EmailSignatario {
		return nil, erros.Validacao("email do token não corresponde ao signatário")
	}
	md := metadadosBase(contrato.MetodoTokenEmail, e, agora)
	md["cpf"] = claims.CPF
	md["token_verified"] = true
	return md, nil
}

func (metodoToken) Prova(_ []byte, e Entrada) (string, error) {
	return "token-email-verificado", nil
}

// metodoICP: certificado ICP-Brasil, por upload ou assinatura direta. O
// certificado é validado e gravado no contrato antes de produzir a
// assinatura criptográfica sobre o documento.
type metodoICP struct {
	nome string
}

func (m metodoICP) Nome() string { return m.nome }

func (m metodoICP) Validar(_ *contrato.Contrato, e Entrada, agora time.Time) (Metadados, error) {
	if len(e.CertificadoPEM) == 0 {
		return nil, erros.Validacao("certificado é obrigatório para métodos ICP-Brasil")
	}
	info, err := ValidarCertificado(e.CertificadoPEM, agora)
	if err != nil {
		return nil, err
	}
	md := metadadosBase(m.nome, e, agora)
	md["certificate_info"] = info
	md["signature_type"] = "ICP-Brasil"
	return md, nil
}

func (m metodoICP) Prova(artefato []byte, e Entrada) (string, error) {
	assinatura, err := AssinarDocumento(e.ChavePEM, e.SenhaCertificado, artefato)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("icp-brasil;sha256-rsa=%s", assinatura), nil
}
