package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tintaforte/api-contratos/internal/ajuste"
	"github.com/tintaforte/api-contratos/internal/armazenamento"
	"github.com/tintaforte/api-contratos/internal/assinatura"
	"github.com/tintaforte/api-contratos/internal/clima"
	"github.com/tintaforte/api-contratos/internal/config"
	"github.com/tintaforte/api-contratos/internal/configuracao"
	"github.com/tintaforte/api-contratos/internal/contrato"
	"github.com/tintaforte/api-contratos/internal/documento"
	"github.com/tintaforte/api-contratos/internal/ledger"
	"github.com/tintaforte/api-contratos/internal/ml"
	"github.com/tintaforte/api-contratos/internal/notificacao"
	"github.com/tintaforte/api-contratos/internal/orquestrador"
	"github.com/tintaforte/api-contratos/internal/previsao"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Carregar()
	if err != nil {
		log.Fatal("Erro na configuração:", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{})
	if err != nil {
		log.Fatal("Erro ao conectar no banco:", err)
	}

	// AutoMigrate para todos os modelos
	if err := db.AutoMigrate(
		&contrato.Contrato{},
		&contrato.AjusteDuracao{},
		&previsao.Previsao{},
		&configuracao.Configuracao{},
	); err != nil {
		log.Fatal("Erro no AutoMigrate:", err)
	}

	ctx := context.Background()

	armazem, err := armazenamento.NewArmazemMinio(cfg.Armazenamento)
	if err != nil {
		log.Fatal("Erro ao conectar no armazenamento:", err)
	}
	if err := armazem.GarantirBucket(ctx); err != nil {
		log.Fatal("Erro ao preparar bucket:", err)
	}

	var gateway ledger.Gateway
	gateway, err = ledger.NewGatewayEVM(ctx, cfg.Ledger)
	if err != nil {
		// O processo sobe sem ledger; as escritas ficam para a reconciliação.
		slog.Warn("ledger indisponível na partida, atestações ficarão pendentes", "err", err)
		gateway = ledger.Indisponivel{}
	}

	provedor := clima.NewServico(cfg.Clima.APIKey, cfg.Clima.BaseURL, cfg.Clima.Timeout)
	preditor := ml.NewPreditorHTTP(cfg.ML.BaseURL, cfg.ML.Timeout)
	motor := ajuste.NewMotor(preditor, cfg.ML.LimiarConfianca)
	pipeline := documento.NewPipeline(documento.NewRenderizadorTexto(), armazem)
	tokens := assinatura.NewServicoToken(cfg.Assinatura.SegredoToken, cfg.Assinatura.ValidadeToken)
	notificador := notificacao.NewEmail(cfg.Email)

	servico := orquestrador.NewServico(db, provedor, motor, pipeline, armazem, gateway, notificador, tokens)

	// Handlers
	orquestradorHandler := orquestrador.NewHandler(servico)
	configuracaoHandler := configuracao.NewHandler(db)

	// Router
	r := mux.NewRouter()
	orquestradorHandler.RegistrarRotas(r)
	configuracaoHandler.RegistrarRotas(r)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})

	fmt.Println("Servidor rodando em http://localhost:" + cfg.Porta)
	log.Fatal(http.ListenAndServe(":"+cfg.Porta, c.Handler(r)))
}
