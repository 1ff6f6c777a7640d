package ajuste_test

import (
	"context"
	"errors"
	"testing"

	"github.com/tintaforte/api-contratos/internal/ajuste"
	"github.com/tintaforte/api-contratos/internal/clima"
	"github.com/tintaforte/api-contratos/internal/contrato"
	"github.com/tintaforte/api-contratos/internal/ml"
)

type preditorFalso struct {
	resultado *ml.Resultado
	err       error
	chamadas  int
}

func (p *preditorFalso) PreverDuracao(_ context.Context, _ []clima.DiaPrevisao, _ contrato.Local, duracao int) (*ml.Resultado, error) {
	p.chamadas++
	if p.err != nil {
		return nil, p.err
	}
	return p.resultado, nil
}

func diasComChuva(probs ...float64) []clima.DiaPrevisao {
	dias := make([]clima.DiaPrevisao, len(probs))
	for i, p := range probs {
		dias[i].ProbChuva = p
	}
	return dias
}

func TestHeuristicaDoisDiasDeChuva(t *testing.T) {
	pred := &preditorFalso{}
	motor := ajuste.NewMotor(pred, 0.7)

	dias := diasComChuva(0.2, 0.8, 0.1, 0.9, 0.5)
	d := motor.Avaliar(context.Background(), dias, contrato.Local{}, 30, false)

	if d.AtrasoDias != 4 {
		t.Fatalf("atraso = %d, esperava 4 (2 dias chuvosos x 2)", d.AtrasoDias)
	}
	if d.NovaDuracao != 34 {
		t.Fatalf("nova duração = %d, esperava 34", d.NovaDuracao)
	}
	if !d.Automatica {
		t.Fatalf("heurística de chuva deve ser automática")
	}
	if d.Motivo != ajuste.MotivoHeuristica {
		t.Fatalf("motivo = %q", d.Motivo)
	}
	if pred.chamadas != 0 {
		t.Fatalf("com chuva prevista o caminho de ML não pode ser consultado, teve %d chamadas", pred.chamadas)
	}
}

func TestHeuristicaLimiarExato(t *testing.T) {
	// Probabilidade exatamente no limiar não conta como dia chuvoso.
	pred := &preditorFalso{resultado: &ml.Resultado{AtrasoDias: 0, Confianca: 0.9, DuracaoRecomendada: 30}}
	motor := ajuste.NewMotor(pred, 0.7)

	d := motor.Avaliar(context.Background(), diasComChuva(0.5, 0.5), contrato.Local{}, 30, false)
	if d.Automatica {
		t.Fatalf("prob 0.5 não excede o limiar, não deveria haver ajuste heurístico")
	}
	if pred.chamadas != 1 {
		t.Fatalf("sem dia chuvoso o motor deve cair no ML, teve %d chamadas", pred.chamadas)
	}
}

func TestMLConfiante(t *testing.T) {
	pred := &preditorFalso{resultado: &ml.Resultado{
		AtrasoDias: 5, DuracaoRecomendada: 35, Confianca: 0.85, ProbChuva: 0.3,
	}}
	motor := ajuste.NewMotor(pred, 0.7)

	d := motor.Avaliar(context.Background(), nil, contrato.Local{}, 30, false)
	if !d.Automatica {
		t.Fatalf("confiança acima do limiar com atraso deve ajustar")
	}
	if d.NovaDuracao != 35 {
		t.Fatalf("nova duração = %d, esperava 35", d.NovaDuracao)
	}
	if d.Inferencia == nil {
		t.Fatalf("decisão pelo caminho de ML deve carregar a inferência")
	}
}

func TestMLPoucoConfiante(t *testing.T) {
	pred := &preditorFalso{resultado: &ml.Resultado{
		AtrasoDias: 5, DuracaoRecomendada: 35, Confianca: 0.4,
	}}
	motor := ajuste.NewMotor(pred, 0.7)

	d := motor.Avaliar(context.Background(), nil, contrato.Local{}, 30, false)
	if d.Automatica || d.Notificar {
		t.Fatalf("confiança abaixo do limiar não pode ajustar nem notificar na geração")
	}
}

func TestFallbackQuandoMLFalha(t *testing.T) {
	pred := &preditorFalso{err: errors.New("serviço fora do ar")}
	motor := ajuste.NewMotor(pred, 0.7)

	d := motor.Avaliar(context.Background(), nil, contrato.Local{}, 30, false)
	if d.Inferencia == nil || d.Inferencia.VersaoModelo != "fallback" {
		t.Fatalf("falha de ML deve produzir o resultado de fallback, veio %+v", d.Inferencia)
	}
	// round(0.2 * 30) = 6, mas confiança 0.3 fica abaixo do limiar.
	if d.AtrasoDias != 6 {
		t.Fatalf("atraso do fallback = %d, esperava 6", d.AtrasoDias)
	}
	if d.Automatica {
		t.Fatalf("fallback nunca tem confiança para ajuste automático")
	}
}

func TestEmExecucaoSoNotifica(t *testing.T) {
	pred := &preditorFalso{resultado: &ml.Resultado{
		AtrasoDias: 5, DuracaoRecomendada: 35, Confianca: 0.95,
	}}
	motor := ajuste.NewMotor(pred, 0.7)

	d := motor.AvaliarEmExecucao(context.Background(), nil, contrato.Local{}, 30)
	if d.Automatica {
		t.Fatalf("caminho de ML em contrato comprometido nunca ajusta")
	}
	if !d.Notificar {
		t.Fatalf("atraso previsto em contrato comprometido deve notificar")
	}
}

func TestEmExecucaoHeuristicaContinuaAutomatica(t *testing.T) {
	pred := &preditorFalso{}
	motor := ajuste.NewMotor(pred, 0.7)

	d := motor.AvaliarEmExecucao(context.Background(), diasComChuva(0.9), contrato.Local{}, 10)
	if !d.Automatica || d.AtrasoDias != 2 {
		t.Fatalf("heurística de chuva ajusta mesmo em execução: %+v", d)
	}
}
