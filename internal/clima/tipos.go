package clima

import "time"

// DiaPrevisao é a previsão processada de um dia da janela do contrato.
type DiaPrevisao struct {
	Data       time.Time `json:"data"`
	TempMin    float64   `json:"tempMin"`
	TempMax    float64   `json:"tempMax"`
	Umidade    float64   `json:"umidade"`
	VentoKmH   float64   `json:"ventoKmh"`
	ProbChuva  float64   `json:"probChuva"`  // 0..1
	ChuvaMm    float64   `json:"chuvaMm"`
	Condicao   string    `json:"condicao"`
	Descricao  string    `json:"descricao"`
}

// Previsao agrega a janela pedida mais estatísticas do período.
type Previsao struct {
	Lat  float64       `json:"lat"`
	Lon  float64       `json:"lon"`
	Dias []DiaPrevisao `json:"dias"`

	ProbChuvaMedia float64 `json:"probChuvaMedia"`
	ChuvaTotalMm   float64 `json:"chuvaTotalMm"`
	TempMedia      float64 `json:"tempMedia"`
}
