// Comando ajustador é o job de manutenção dos contratos: reavalia a
// previsão dos contratos em andamento e reaplica atestações de ledger que
// ficaram pendentes. Pensado para rodar por cron, uma vez ao dia.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tintaforte/api-contratos/internal/ajuste"
	"github.com/tintaforte/api-contratos/internal/armazenamento"
	"github.com/tintaforte/api-contratos/internal/assinatura"
	"github.com/tintaforte/api-contratos/internal/clima"
	"github.com/tintaforte/api-contratos/internal/config"
	"github.com/tintaforte/api-contratos/internal/documento"
	"github.com/tintaforte/api-contratos/internal/ledger"
	"github.com/tintaforte/api-contratos/internal/ml"
	"github.com/tintaforte/api-contratos/internal/notificacao"
	"github.com/tintaforte/api-contratos/internal/orquestrador"
)

var rootCmd = &cobra.Command{
	Use:   "ajustador",
	Short: "Job diário de reavaliação e reconciliação de contratos",
}

func main() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().Bool("json", false, "saída em JSON")
	rootCmd.PersistentFlags().Bool("seco", false, "só relata, não notifica por email")
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("seco", rootCmd.PersistentFlags().Lookup("seco"))

	rootCmd.AddCommand(ajustarCmd())
	rootCmd.AddCommand(reconciliarCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println("erro:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("AJUSTADOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func ajustarCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ajustar",
		Short: "Reavalia a previsão dos contratos assinados em andamento",
		RunE: func(cmd *cobra.Command, args []string) error {
			return comServico(cmd.Context(), func(ctx context.Context, s *orquestrador.Servico) error {
				itens, err := s.ReavaliarEmAndamento(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(itens)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Contrato", "Título", "Restantes", "Atraso", "Nova duração", "Ação", "Detalhe"})
				for _, it := range itens {
					tw.AppendRow(table.Row{it.ContratoID, it.Titulo, it.DiasRestantes, it.AtrasoDias, it.NovaDuracao, it.Acao, it.Detalhe})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func reconciliarCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconciliar",
		Short: "Reaplica atestações de ledger pendentes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return comServico(cmd.Context(), func(ctx context.Context, s *orquestrador.Servico) error {
				itens, err := s.Reconciliar(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(itens)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Contrato", "CID", "Tx", "Ação", "Detalhe"})
				for _, it := range itens {
					tw.AppendRow(table.Row{it.ContratoID, it.CIDInicial, it.TxHash, it.Acao, it.Detalhe})
				}
				tw.Render()
				return nil
			})
		},
	}
}

// comServico monta a mesma malha de dependências do servidor e entrega um
// orquestrador pronto ao comando.
func comServico(ctx context.Context, fn func(context.Context, *orquestrador.Servico) error) error {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	cfg, err := config.Carregar()
	if err != nil {
		return err
	}

	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{})
	if err != nil {
		return err
	}

	armazem, err := armazenamento.NewArmazemMinio(cfg.Armazenamento)
	if err != nil {
		return err
	}

	var gateway ledger.Gateway
	gateway, err = ledger.NewGatewayEVM(ctx, cfg.Ledger)
	if err != nil {
		slog.Warn("ledger indisponível, a reconciliação não terá efeito nesta rodada", "err", err)
		gateway = ledger.Indisponivel{}
	}

	provedor := clima.NewServico(cfg.Clima.APIKey, cfg.Clima.BaseURL, cfg.Clima.Timeout)
	preditor := ml.NewPreditorHTTP(cfg.ML.BaseURL, cfg.ML.Timeout)
	motor := ajuste.NewMotor(preditor, cfg.ML.LimiarConfianca)
	pipeline := documento.NewPipeline(documento.NewRenderizadorTexto(), armazem)
	tokens := assinatura.NewServicoToken(cfg.Assinatura.SegredoToken, cfg.Assinatura.ValidadeToken)

	var notificador notificacao.Notificador = notificacao.NewEmail(cfg.Email)
	if viper.GetBool("seco") {
		notificador = notificacao.Nula{}
	}

	servico := orquestrador.NewServico(db, provedor, motor, pipeline, armazem, gateway, notificador, tokens)
	return fn(ctx, servico)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
