// Package documento transforma um snapshot de contrato em artefato imutável
// e publica no armazém por conteúdo. A renderização é determinística para o
// mesmo snapshot, o que mantém o CID reproduzível em auditoria.
package documento

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
	"time"

	"github.com/tintaforte/api-contratos/internal/armazenamento"
	"github.com/tintaforte/api-contratos/internal/contrato"
	"github.com/tintaforte/api-contratos/internal/erros"
	"github.com/tintaforte/api-contratos/internal/previsao"
)

// Snapshot congela tudo que entra na renderização do contrato.
type Snapshot struct {
	Contrato *contrato.Contrato
	Previsao *previsao.Previsao
}

// Renderizador produz os bytes do artefato. A geração de PDF de verdade é
// um colaborador externo; o renderizador padrão emite o documento textual.
type Renderizador interface {
	Renderizar(s Snapshot) ([]byte, error)
}

// BlocoAssinatura é o que vai embutido no artefato assinado.
type BlocoAssinatura struct {
	Email   string
	Metodo  string
	Quando  time.Time
	// Prova específica do método: marcador de consentimento, imagem da
	// assinatura ou asserção do certificado.
	Prova string
}

type Pipeline struct {
	Renderizador Renderizador
	Armazem      armazenamento.Armazem
}

func NewPipeline(r Renderizador, a armazenamento.Armazem) *Pipeline {
	return &Pipeline{Renderizador: r, Armazem: a}
}

// GerarEPublicar renderiza o snapshot e publica o artefato, devolvendo o
// CID e os bytes gerados.
func (p *Pipeline) GerarEPublicar(ctx context.Context, s Snapshot) (string, []byte, error) {
	artefato, err := p.Renderizador.Renderizar(s)
	if err != nil {
		return "", nil, erros.Armazenamento("falha ao renderizar contrato", err)
	}
	nome := fmt.Sprintf("contrato_%d.pdf", s.Contrato.ID)
	cid, err := p.Armazem.Publicar(ctx, artefato, nome)
	if err != nil {
		return "", nil, err
	}
	return cid, artefato, nil
}

// PublicarAssinado embute o bloco de assinatura no artefato original e
// publica a versão assinada.
func (p *Pipeline) PublicarAssinado(ctx context.Context, contratoID uint, original []byte, bloco BlocoAssinatura) (string, error) {
	assinado := EmbutirAssinatura(original, bloco)
	nome := fmt.Sprintf("contrato_%d_assinado.pdf", contratoID)
	return p.Armazem.Publicar(ctx, assinado, nome)
}

// EmbutirAssinatura anexa os metadados de assinatura ao documento.
func EmbutirAssinatura(original []byte, bloco BlocoAssinatura) []byte {
	var b bytes.Buffer
	b.Write(original)
	fmt.Fprintf(&b, "\n---- ASSINATURA ----\n")
	fmt.Fprintf(&b, "Signatário: %s\n", bloco.Email)
	fmt.Fprintf(&b, "Método: %s\n", bloco.Metodo)
	fmt.Fprintf(&b, "Data: %s\n", bloco.Quando.UTC().Format(time.RFC3339))
	if bloco.Prova != "" {
		fmt.Fprintf(&b, "Prova: %s\n", bloco.Prova)
	}
	return b.Bytes()
}

// RenderizadorTexto é o renderizador padrão, determinístico por construção:
// nenhuma fonte de tempo ou aleatoriedade entra no template.
type RenderizadorTexto struct {
	tmpl *template.Template
}

const modeloContrato = `CONTRATO DE PRESTAÇÃO DE SERVIÇOS DE PINTURA
Contrato nº {{.Contrato.ID}}

Título: {{.Contrato.Titulo}}
{{- if .Contrato.Descricao}}
Descrição: {{.Contrato.Descricao}}
{{- end}}

CONTRATANTE: {{.Contrato.ContratanteNome}} <{{.Contrato.ContratanteEmail}}>
PRESTADOR:   {{.Contrato.PrestadorNome}} <{{.Contrato.PrestadorEmail}}>

Local da obra: {{.Contrato.Local.Endereco}}, {{.Contrato.Local.Cidade}}/{{.Contrato.Local.Estado}} - {{.Contrato.Local.Pais}}
Início previsto: {{.Contrato.DataInicioPrevista.Format "2006-01-02"}}
Duração prevista: {{.Contrato.DuracaoPrevistaDias}} dias
{{- if .Contrato.DuracaoAjustadaDias}}
Duração ajustada: {{.Contrato.DuracaoVigente}} dias
{{- end}}

Valor: R$ {{printf "%.2f" .Contrato.Valor}} ({{.Contrato.FormaPagamento}})
{{- if .Previsao}}

PREVISÃO DO TEMPO NA JANELA DA OBRA
Probabilidade média de chuva: {{printf "%.0f%%" (mult .Previsao.ProbChuva 100.0)}}
Atraso previsto: {{.Previsao.AtrasoPrevistoDias}} dias (confiança {{printf "%.2f" .Previsao.Confianca}})
{{- end}}
`

func NewRenderizadorTexto() *RenderizadorTexto {
	tmpl := template.Must(template.New("contrato").Funcs(template.FuncMap{
		"mult": func(a, b float64) float64 { return a * b },
	}).Parse(modeloContrato))
	return &RenderizadorTexto{tmpl: tmpl}
}

func (r *RenderizadorTexto) Renderizar(s Snapshot) ([]byte, error) {
	var b bytes.Buffer
	if err := r.tmpl.Execute(&b, s); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}
