// Package notificacao entrega avisos fora de banda (email, webhook).
// Falhas são registradas e nunca bloqueiam uma transição de ciclo de vida.
package notificacao

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/smtp"

	"github.com/tintaforte/api-contratos/internal/config"
	"github.com/tintaforte/api-contratos/internal/contrato"
)

type Notificador interface {
	EnviarToken(ctx context.Context, email, token, tituloContrato string) error
	EnviarContratoParaRevisao(ctx context.Context, email string, c *contrato.Contrato, cid string) error
	NotificarAtraso(ctx context.Context, c *contrato.Contrato, atrasoDias int, motivo string) error
}

// Email entrega por SMTP e, quando configurado, replica avisos de atraso
// num webhook operacional.
type Email struct {
	cfg config.EmailConfig
}

func NewEmail(cfg config.EmailConfig) *Email {
	return &Email{cfg: cfg}
}

func (e *Email) EnviarToken(_ context.Context, email, token, tituloContrato string) error {
	assunto := "Token de assinatura - " + tituloContrato
	corpo := fmt.Sprintf("Seu token de assinatura para o contrato %q:\r\n\r\n%s\r\n\r\nO token expira em 30 minutos.", tituloContrato, token)
	return e.enviar(email, assunto, corpo)
}

func (e *Email) EnviarContratoParaRevisao(_ context.Context, email string, c *contrato.Contrato, cid string) error {
	assunto := "Contrato para revisão - " + c.Titulo
	corpo := fmt.Sprintf("O contrato %q está disponível para revisão.\r\nDocumento: %s\r\nValor: R$ %.2f", c.Titulo, cid, c.Valor)
	return e.enviar(email, assunto, corpo)
}

func (e *Email) NotificarAtraso(ctx context.Context, c *contrato.Contrato, atrasoDias int, motivo string) error {
	assunto := fmt.Sprintf("Possível atraso de %d dias - %s", atrasoDias, c.Titulo)
	corpo := fmt.Sprintf("A reavaliação diária indica atraso de %d dias no contrato %q.\r\nMotivo: %s", atrasoDias, c.Titulo, motivo)

	if e.cfg.WebhookURL != "" {
		e.postarWebhook(ctx, map[string]any{
			"contratoId": c.ID,
			"titulo":     c.Titulo,
			"atrasoDias": atrasoDias,
			"motivo":     motivo,
		})
	}

	if err := e.enviar(c.ContratanteEmail, assunto, corpo); err != nil {
		return err
	}
	return e.enviar(c.PrestadorEmail, assunto, corpo)
}

func (e *Email) enviar(para, assunto, corpo string) error {
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", e.cfg.Remetente, para, assunto, corpo))
	addr := e.cfg.Host + ":" + e.cfg.Porta

	var auth smtp.Auth
	if e.cfg.Usuario != "" {
		auth = smtp.PlainAuth("", e.cfg.Usuario, e.cfg.Senha, e.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, e.cfg.Remetente, []string{para}, msg); err != nil {
		slog.Error("falha ao enviar email", "para", para, "err", err)
		return err
	}
	return nil
}

func (e *Email) postarWebhook(ctx context.Context, payload map[string]any) {
	corpo, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.WebhookURL, bytes.NewReader(corpo))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		slog.Error("falha ao enviar webhook de atraso", "err", err)
		return
	}
	defer resp.Body.Close()
}

// Nula descarta todas as notificações (testes e ambientes sem SMTP).
type Nula struct{}

func (Nula) EnviarToken(context.Context, string, string, string) error { return nil }
func (Nula) EnviarContratoParaRevisao(context.Context, string, *contrato.Contrato, string) error {
	return nil
}
func (Nula) NotificarAtraso(context.Context, *contrato.Contrato, int, string) error { return nil }
