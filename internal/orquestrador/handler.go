package orquestrador

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/tintaforte/api-contratos/internal/assinatura"
	"github.com/tintaforte/api-contratos/internal/contrato"
	"github.com/tintaforte/api-contratos/internal/erros"
)

// request DTOs
type solicitarTokenRequest struct {
	Email string `json:"email"`
	CPF   string `json:"cpf"`
}

type validarTokenRequest struct {
	Token string `json:"token"`
}

type assinarRequest struct {
	Metodo string `json:"metodo"`
	assinatura.Entrada
}

type preverRequest struct {
	Local       contrato.Local `json:"local"`
	DataInicio  string         `json:"dataInicio"`
	DuracaoDias int            `json:"duracaoDias"`
}

// Handler expõe o orquestrador por HTTP.
type Handler struct {
	Servico *Servico
}

func NewHandler(s *Servico) *Handler {
	return &Handler{Servico: s}
}

// RegistrarRotas prende as rotas do ciclo de vida no router.
func (h *Handler) RegistrarRotas(r *mux.Router) {
	r.HandleFunc("/contratos", h.Gerar).Methods("POST")
	r.HandleFunc("/contratos/{cid}", h.Situacao).Methods("GET")
	r.HandleFunc("/contratos/{cid}/solicitar-assinatura", h.SolicitarAssinatura).Methods("POST")
	r.HandleFunc("/contratos/{cid}/assinar", h.Assinar).Methods("POST")
	r.HandleFunc("/contratos/{cid}/cancelar", h.Cancelar).Methods("POST")
	r.HandleFunc("/contratos/{cid}/verificar", h.Verificar).Methods("GET")
	r.HandleFunc("/contratos/{cid}/custos", h.EstimarCustos).Methods("GET")
	r.HandleFunc("/contratos/{cid}/token", h.SolicitarToken).Methods("POST")
	r.HandleFunc("/tokens/validar", h.ValidarToken).Methods("POST")
	r.HandleFunc("/assinaturas/metodos", h.Metodos).Methods("GET")
	r.HandleFunc("/prever-chuva", h.PreverChuva).Methods("POST")
}

// Gerar cria o contrato com previsão, decisão de duração e artefato publicado
func (h *Handler) Gerar(w http.ResponseWriter, r *http.Request) {
	var req contrato.GerarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "payload inválido", http.StatusBadRequest)
		return
	}

	c, p, err := h.Servico.Gerar(r.Context(), &req)
	if err != nil {
		responderErro(w, err)
		return
	}
	responderJSON(w, http.StatusCreated, map[string]any{
		"contrato": c,
		"previsao": p,
	})
}

// Situacao devolve a visão agregada de banco, armazenamento e ledger
func (h *Handler) Situacao(w http.ResponseWriter, r *http.Request) {
	sit, err := h.Servico.Situacao(r.Context(), mux.Vars(r)["cid"])
	if err != nil {
		responderErro(w, err)
		return
	}
	responderJSON(w, http.StatusOK, sit)
}

// SolicitarAssinatura move o contrato para pending_signature
func (h *Handler) SolicitarAssinatura(w http.ResponseWriter, r *http.Request) {
	c, err := h.Servico.SolicitarAssinatura(r.Context(), mux.Vars(r)["cid"])
	if err != nil {
		responderErro(w, err)
		return
	}
	responderJSON(w, http.StatusOK, c)
}

// Assinar aplica o método escolhido (ou o padrão) e finaliza o contrato
func (h *Handler) Assinar(w http.ResponseWriter, r *http.Request) {
	var req assinarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "payload inválido", http.StatusBadRequest)
		return
	}
	req.Entrada.IP = r.RemoteAddr

	c, err := h.Servico.Assinar(r.Context(), mux.Vars(r)["cid"], req.Metodo, req.Entrada)
	if err != nil {
		responderErro(w, err)
		return
	}
	responderJSON(w, http.StatusOK, c)
}

// Cancelar encerra um contrato ainda em rascunho
func (h *Handler) Cancelar(w http.ResponseWriter, r *http.Request) {
	c, err := h.Servico.Cancelar(r.Context(), mux.Vars(r)["cid"])
	if err != nil {
		responderErro(w, err)
		return
	}
	responderJSON(w, http.StatusOK, c)
}

// Verificar confere a assinatura contra armazenamento e ledger
func (h *Handler) Verificar(w http.ResponseWriter, r *http.Request) {
	res, err := h.Servico.Verificar(r.Context(), mux.Vars(r)["cid"])
	if err != nil {
		responderErro(w, err)
		return
	}
	responderJSON(w, http.StatusOK, res)
}

// EstimarCustos estima o gás das atestações pendentes
func (h *Handler) EstimarCustos(w http.ResponseWriter, r *http.Request) {
	est, err := h.Servico.EstimarCustos(r.Context(), mux.Vars(r)["cid"])
	if err != nil {
		responderErro(w, err)
		return
	}
	responderJSON(w, http.StatusOK, est)
}

// SolicitarToken emite e envia o token de verificação por email
func (h *Handler) SolicitarToken(w http.ResponseWriter, r *http.Request) {
	var req solicitarTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "payload inválido", http.StatusBadRequest)
		return
	}
	if req.Email == "" {
		http.Error(w, "email é obrigatório", http.StatusBadRequest)
		return
	}

	expira, err := h.Servico.SolicitarToken(r.Context(), mux.Vars(r)["cid"], req.Email, req.CPF)
	if err != nil {
		responderErro(w, err)
		return
	}
	responderJSON(w, http.StatusOK, map[string]any{
		"mensagem": "token enviado por email",
		"expira":   expira,
	})
}

// ValidarToken confere um token emitido e devolve o contrato dono
func (h *Handler) ValidarToken(w http.ResponseWriter, r *http.Request) {
	var req validarTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "payload inválido", http.StatusBadRequest)
		return
	}

	c, claims, err := h.Servico.ValidarToken(r.Context(), req.Token)
	if err != nil {
		responderErro(w, err)
		return
	}
	responderJSON(w, http.StatusOK, map[string]any{
		"valido":   true,
		"contrato": c.CIDInicial,
		"email":    claims.Email,
	})
}

// Metodos lista os métodos de assinatura aceitos e o padrão vigente
func (h *Handler) Metodos(w http.ResponseWriter, r *http.Request) {
	padrao, err := h.Servico.Configuracoes.MetodoAssinaturaPadrao(h.Servico.DB)
	if err != nil {
		responderErro(w, err)
		return
	}
	responderJSON(w, http.StatusOK, map[string]any{
		"metodos": contrato.MetodosValidos,
		"padrao":  padrao,
	})
}

// PreverChuva avalia uma janela arbitrária sem persistir nada
func (h *Handler) PreverChuva(w http.ResponseWriter, r *http.Request) {
	var req preverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "payload inválido", http.StatusBadRequest)
		return
	}
	inicio, err := time.Parse("2006-01-02", req.DataInicio)
	if err != nil {
		http.Error(w, "dataInicio inválida, use AAAA-MM-DD", http.StatusBadRequest)
		return
	}

	res, err := h.Servico.PreverJanela(r.Context(), req.Local, inicio, req.DuracaoDias)
	if err != nil {
		responderErro(w, err)
		return
	}
	responderJSON(w, http.StatusOK, res)
}

func responderJSON(w http.ResponseWriter, status int, corpo any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(corpo)
}

func responderErro(w http.ResponseWriter, err error) {
	status := erros.StatusHTTP(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"erro": err.Error()})
}
