// Package armazenamento guarda os artefatos imutáveis dos contratos,
// endereçados pelo hash do conteúdo (CID). Publicar os mesmos bytes duas
// vezes devolve o mesmo CID.
package armazenamento

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/tintaforte/api-contratos/internal/erros"
)

// Armazem é a capacidade de armazenamento por conteúdo consumida pelo núcleo.
type Armazem interface {
	Publicar(ctx context.Context, conteudo []byte, nome string) (string, error)
	Buscar(ctx context.Context, cid string) ([]byte, error)
	Existe(ctx context.Context, cid string) (bool, error)
}

// CID deriva o endereço de conteúdo dos bytes do artefato.
func CID(conteudo []byte) string {
	soma := sha256.Sum256(conteudo)
	return "sha256-" + hex.EncodeToString(soma[:])
}

// Memoria é um armazém em memória para testes e desenvolvimento local.
type Memoria struct {
	mu    sync.RWMutex
	itens map[string][]byte
}

func NewMemoria() *Memoria {
	return &Memoria{itens: map[string][]byte{}}
}

func (m *Memoria) Publicar(_ context.Context, conteudo []byte, _ string) (string, error) {
	cid := CID(conteudo)
	m.mu.Lock()
	defer m.mu.Unlock()
	copia := make([]byte, len(conteudo))
	copy(copia, conteudo)
	m.itens[cid] = copia
	return cid, nil
}

func (m *Memoria) Buscar(_ context.Context, cid string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conteudo, ok := m.itens[cid]
	if !ok {
		return nil, erros.NaoEncontrado("artefato não encontrado: " + cid)
	}
	return conteudo, nil
}

func (m *Memoria) Existe(_ context.Context, cid string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.itens[cid]
	return ok, nil
}
