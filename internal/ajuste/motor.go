// Package ajuste contém o motor de decisão de duração: heurística de dias
// de chuva em primeiro lugar, inferência de ML apenas como fallback.
package ajuste

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tintaforte/api-contratos/internal/clima"
	"github.com/tintaforte/api-contratos/internal/contrato"
	"github.com/tintaforte/api-contratos/internal/ml"
)

// LimiarChuva marca um dia como chuvoso quando a probabilidade o excede.
const LimiarChuva = 0.5

// DiasPorDiaDeChuva é o acréscimo de prazo por dia chuvoso previsto.
const DiasPorDiaDeChuva = 2

// MotivoHeuristica satisfaz a auditoria do ajuste automático por clima.
const MotivoHeuristica = "Auto-adjusted due to weather forecast"

// Decisao é o veredito do motor sobre uma janela de contrato.
type Decisao struct {
	AtrasoDias  int
	NovaDuracao int
	// Automatica: o ajuste deve ser aplicado diretamente ao contrato.
	Automatica bool
	// Notificar: atraso relevante em contrato já comprometido; só avisar,
	// nunca alterar silenciosamente o que as partes assinaram.
	Notificar bool
	Motivo    string
	ProbChuva float64
	// Inferencia presente quando o caminho de ML foi consultado.
	Inferencia *ml.Resultado
}

// Motor decide ajustes de duração. É puro em relação a um snapshot de
// previsão e pode ser usado concorrentemente para contratos diferentes.
type Motor struct {
	Preditor        ml.Preditor
	LimiarConfianca float64
}

func NewMotor(preditor ml.Preditor, limiarConfianca float64) *Motor {
	if limiarConfianca <= 0 {
		limiarConfianca = 0.7
	}
	return &Motor{Preditor: preditor, LimiarConfianca: limiarConfianca}
}

// Avaliar aplica a decisão em duas camadas sobre a janela prevista.
// emExecucao indica contrato já em pending_signature/signed: o caminho de
// ML vira apenas notificação.
func (m *Motor) Avaliar(ctx context.Context, dias []clima.DiaPrevisao, local contrato.Local, duracao int, emExecucao bool) Decisao {
	// Camada 1: heurística de chuva. Com sinal confiante de chuva o motor
	// nunca consulta o caminho de ML para a decisão primária.
	if chuvosos := contarChuvosos(dias); chuvosos > 0 {
		atraso := chuvosos * DiasPorDiaDeChuva
		return Decisao{
			AtrasoDias:  atraso,
			NovaDuracao: duracao + atraso,
			Automatica:  true,
			Motivo:      MotivoHeuristica,
			ProbChuva:   probMaxima(dias),
		}
	}

	// Camada 2: fallback de ML (previsão ausente ou sem chuva prevista).
	resultado, err := m.Preditor.PreverDuracao(ctx, dias, local, duracao)
	if err != nil {
		slog.Warn("inferência falhou, usando fallback conservador", "err", err)
		resultado = ml.Fallback(duracao)
	}

	d := Decisao{
		AtrasoDias:  resultado.AtrasoDias,
		NovaDuracao: resultado.DuracaoRecomendada,
		ProbChuva:   resultado.ProbChuva,
		Inferencia:  resultado,
	}
	switch {
	case emExecucao:
		// Contrato já comprometido: nunca ajustar automaticamente.
		d.Notificar = resultado.AtrasoDias > 0
		d.Motivo = fmt.Sprintf("ML prevê atraso de %d dias (confiança %.2f)", resultado.AtrasoDias, resultado.Confianca)
	case resultado.Confianca >= m.LimiarConfianca && resultado.AtrasoDias > 0:
		d.Automatica = true
		d.Motivo = fmt.Sprintf("Weather-based adjustment: %d additional days recommended", resultado.AtrasoDias)
	default:
		d.Motivo = fmt.Sprintf("confiança %.2f abaixo do limiar %.2f, sem ajuste", resultado.Confianca, m.LimiarConfianca)
	}
	return d
}

// AvaliarEmExecucao é o ponto de entrada puro do job diário para contratos
// em andamento, com os dias restantes como duração base.
func (m *Motor) AvaliarEmExecucao(ctx context.Context, dias []clima.DiaPrevisao, local contrato.Local, diasRestantes int) Decisao {
	return m.Avaliar(ctx, dias, local, diasRestantes, true)
}

func contarChuvosos(dias []clima.DiaPrevisao) int {
	n := 0
	for _, d := range dias {
		if d.ProbChuva > LimiarChuva {
			n++
		}
	}
	return n
}

func probMaxima(dias []clima.DiaPrevisao) float64 {
	max := 0.0
	for _, d := range dias {
		if d.ProbChuva > max {
			max = d.ProbChuva
		}
	}
	return max
}
