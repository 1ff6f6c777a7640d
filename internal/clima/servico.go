package clima

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/tintaforte/api-contratos/internal/contrato"
	"github.com/tintaforte/api-contratos/internal/erros"
)

// Provedor é a capacidade de previsão consumida pelo núcleo. O resultado é
// cacheável por (local, janela) com frescor de poucas horas.
type Provedor interface {
	Prever(ctx context.Context, local contrato.Local, inicio time.Time, dias int) (*Previsao, error)
}

// Servico fala com a API do OpenWeatherMap e mantém um cache com TTL de 3h,
// o mesmo frescor usado nas previsões de janela de obra.
type Servico struct {
	apiKey  string
	baseURL string
	http    *http.Client
	cache   *expirable.LRU[string, *Previsao]
}

func NewServico(apiKey, baseURL string, timeout time.Duration) *Servico {
	return &Servico{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		cache:   expirable.NewLRU[string, *Previsao](256, nil, 3*time.Hour),
	}
}

type respostaOneCall struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Daily []struct {
		Dt   int64 `json:"dt"`
		Temp struct {
			Min float64 `json:"min"`
			Max float64 `json:"max"`
			Day float64 `json:"day"`
		} `json:"temp"`
		Humidity  float64 `json:"humidity"`
		WindSpeed float64 `json:"wind_speed"`
		Pop       float64 `json:"pop"`
		Rain      float64 `json:"rain"`
		Weather   []struct {
			Main        string `json:"main"`
			Description string `json:"description"`
		} `json:"weather"`
	} `json:"daily"`
}

// Prever busca e processa a previsão diária da janela [inicio, inicio+dias).
func (s *Servico) Prever(ctx context.Context, local contrato.Local, inicio time.Time, dias int) (*Previsao, error) {
	chave := fmt.Sprintf("%.4f:%.4f:%s:%d", local.Lat, local.Lon, inicio.Format("2006-01-02"), dias)
	if p, ok := s.cache.Get(chave); ok {
		return p, nil
	}

	lat, lon := local.Lat, local.Lon
	if lat == 0 && lon == 0 {
		var err error
		lat, lon, err = s.geocodificar(ctx, local)
		if err != nil {
			return nil, err
		}
	}

	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%f", lat))
	q.Set("lon", fmt.Sprintf("%f", lon))
	q.Set("appid", s.apiKey)
	q.Set("units", "metric")
	q.Set("exclude", "current,minutely,hourly,alerts")

	var bruto respostaOneCall
	if err := s.buscarJSON(ctx, s.baseURL+"/data/2.5/onecall?"+q.Encode(), &bruto); err != nil {
		return nil, err
	}

	p, err := processar(&bruto, inicio, dias)
	if err != nil {
		return nil, err
	}
	s.cache.Add(chave, p)
	return p, nil
}

func (s *Servico) geocodificar(ctx context.Context, local contrato.Local) (float64, float64, error) {
	q := url.Values{}
	consulta := local.Cidade
	if local.Pais != "" {
		consulta += "," + local.Pais
	}
	q.Set("q", consulta)
	q.Set("appid", s.apiKey)
	q.Set("limit", "1")

	var resultados []struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	}
	if err := s.buscarJSON(ctx, s.baseURL+"/geo/1.0/direct?"+q.Encode(), &resultados); err != nil {
		return 0, 0, err
	}
	if len(resultados) == 0 {
		return 0, 0, erros.Clima("local não encontrado: "+local.Cidade, nil)
	}
	return resultados[0].Lat, resultados[0].Lon, nil
}

func (s *Servico) buscarJSON(ctx context.Context, url string, destino any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return erros.Clima("falha ao montar requisição", err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		slog.Error("requisição ao provedor de clima falhou", "err", err)
		return erros.Clima("serviço de clima indisponível", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return erros.Clima(fmt.Sprintf("provedor de clima respondeu %d", resp.StatusCode), nil)
	}
	if err := json.NewDecoder(resp.Body).Decode(destino); err != nil {
		return erros.Clima("resposta do provedor ilegível", err)
	}
	return nil
}

func processar(bruto *respostaOneCall, inicio time.Time, dias int) (*Previsao, error) {
	if len(bruto.Daily) == 0 {
		return nil, erros.Clima("sem dados de previsão disponíveis", nil)
	}
	fim := inicio.AddDate(0, 0, dias)

	p := &Previsao{Lat: bruto.Lat, Lon: bruto.Lon}
	var somaProb, somaChuva, somaTemp float64
	for i, d := range bruto.Daily {
		if i >= dias {
			break
		}
		data := time.Unix(d.Dt, 0).UTC()
		if data.Before(inicio.Truncate(24*time.Hour)) || !data.Before(fim) {
			continue
		}
		dia := DiaPrevisao{
			Data:      data,
			TempMin:   d.Temp.Min,
			TempMax:   d.Temp.Max,
			Umidade:   d.Humidity,
			VentoKmH:  d.WindSpeed * 3.6,
			ProbChuva: d.Pop,
			ChuvaMm:   d.Rain,
		}
		if len(d.Weather) > 0 {
			dia.Condicao = d.Weather[0].Main
			dia.Descricao = d.Weather[0].Description
		}
		p.Dias = append(p.Dias, dia)
		somaProb += d.Pop
		somaChuva += d.Rain
		somaTemp += d.Temp.Day
	}
	if len(p.Dias) == 0 {
		return nil, erros.Clima("sem previsão para a janela pedida", nil)
	}
	p.ProbChuvaMedia = somaProb / float64(dias)
	p.ChuvaTotalMm = somaChuva
	p.TempMedia = somaTemp / float64(len(p.Dias))
	return p, nil
}
