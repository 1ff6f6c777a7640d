package configuracao

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/tintaforte/api-contratos/internal/erros"
)

type definirMetodoRequest struct {
	Metodo string `json:"metodo"`
}

// Handler encapsula DB e repository
type Handler struct {
	DB         *gorm.DB
	Repository Repository
}

// NewHandler retorna um handler inicializado
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{
		DB:         db,
		Repository: NewRepository(),
	}
}

// RegistrarRotas prende as rotas de configuração no router.
func (h *Handler) RegistrarRotas(r *mux.Router) {
	r.HandleFunc("/configuracoes/metodo-assinatura", h.BuscarMetodoPadrao).Methods("GET")
	r.HandleFunc("/configuracoes/metodo-assinatura", h.DefinirMetodoPadrao).Methods("PUT")
}

// BuscarMetodoPadrao devolve o método de assinatura padrão vigente
func (h *Handler) BuscarMetodoPadrao(w http.ResponseWriter, r *http.Request) {
	metodo, err := h.Repository.MetodoAssinaturaPadrao(h.DB)
	if err != nil {
		http.Error(w, "erro ao buscar configuração", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"metodo": metodo})
}

// DefinirMetodoPadrao troca o método de assinatura padrão
func (h *Handler) DefinirMetodoPadrao(w http.ResponseWriter, r *http.Request) {
	var req definirMetodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "payload inválido", http.StatusBadRequest)
		return
	}

	if err := h.Repository.DefinirMetodoAssinaturaPadrao(h.DB, req.Metodo); err != nil {
		http.Error(w, err.Error(), erros.StatusHTTP(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"metodo": req.Metodo})
}
