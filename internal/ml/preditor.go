package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/tintaforte/api-contratos/internal/clima"
	"github.com/tintaforte/api-contratos/internal/contrato"
	"github.com/tintaforte/api-contratos/internal/erros"
)

// Resultado é a saída estruturada de uma inferência de duração.
type Resultado struct {
	AtrasoDias        int            `json:"delay_days"`
	DuracaoRecomendada int           `json:"recommended_duration"`
	Confianca         float64        `json:"confidence_score"`
	ProbChuva         float64        `json:"rain_probability"`
	VersaoModelo      string         `json:"model_version"`
	Metadados         map[string]any `json:"metadata,omitempty"`
}

// Preditor é a capacidade de inferência consumida pelo motor de ajuste.
type Preditor interface {
	PreverDuracao(ctx context.Context, dias []clima.DiaPrevisao, local contrato.Local, duracaoOriginal int) (*Resultado, error)
}

// Fallback é o resultado conservador usado quando a inferência falha:
// 20% da duração original como atraso, confiança baixa o bastante para
// nunca disparar ajuste automático.
func Fallback(duracaoOriginal int) *Resultado {
	atraso := int(math.Round(0.2 * float64(duracaoOriginal)))
	return &Resultado{
		AtrasoDias:         atraso,
		DuracaoRecomendada: duracaoOriginal + atraso,
		Confianca:          0.3,
		VersaoModelo:       "fallback",
		Metadados:          map[string]any{"fallback": true},
	}
}

// PreditorHTTP chama o serviço de inferência via REST.
type PreditorHTTP struct {
	baseURL string
	http    *http.Client
}

func NewPreditorHTTP(baseURL string, timeout time.Duration) *PreditorHTTP {
	return &PreditorHTTP{baseURL: baseURL, http: &http.Client{Timeout: timeout}}
}

func (p *PreditorHTTP) PreverDuracao(ctx context.Context, dias []clima.DiaPrevisao, local contrato.Local, duracaoOriginal int) (*Resultado, error) {
	corpo, err := json.Marshal(map[string]any{
		"weather_data":      dias,
		"location":          local,
		"original_duration": duracaoOriginal,
	})
	if err != nil {
		return nil, erros.Predicao("falha ao serializar entrada", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/predict", bytes.NewReader(corpo))
	if err != nil {
		return nil, erros.Predicao("falha ao montar requisição", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		slog.Error("serviço de inferência indisponível", "err", err)
		return nil, erros.Predicao("serviço de inferência indisponível", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, erros.Predicao(fmt.Sprintf("serviço de inferência respondeu %d", resp.StatusCode), nil)
	}

	var r Resultado
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, erros.Predicao("resposta da inferência ilegível", err)
	}
	if r.DuracaoRecomendada < duracaoOriginal {
		// Cold-start ou modelo degenerado: nunca recomende encolher a obra.
		r.DuracaoRecomendada = duracaoOriginal
		r.AtrasoDias = 0
	}
	return &r, nil
}
