package armazenamento

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/tintaforte/api-contratos/internal/config"
	"github.com/tintaforte/api-contratos/internal/erros"
)

// ArmazemMinio implementa o armazém sobre um bucket MinIO/S3, usando o CID
// como chave do objeto. Regravar o mesmo conteúdo é inofensivo.
type ArmazemMinio struct {
	client  *minio.Client
	bucket  string
	timeout time.Duration
}

func NewArmazemMinio(cfg config.ArmazenamentoConfig) (*ArmazemMinio, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("falha ao criar cliente minio: %w", err)
	}
	return &ArmazemMinio{client: client, bucket: cfg.Bucket, timeout: cfg.Timeout}, nil
}

// GarantirBucket cria o bucket se ele ainda não existir.
func (a *ArmazemMinio) GarantirBucket(ctx context.Context) error {
	existe, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("falha ao checar bucket: %w", err)
	}
	if !existe {
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("falha ao criar bucket: %w", err)
		}
	}
	return nil
}

func (a *ArmazemMinio) Publicar(ctx context.Context, conteudo []byte, nome string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	cid := CID(conteudo)
	_, err := a.client.PutObject(ctx, a.bucket, cid, bytes.NewReader(conteudo), int64(len(conteudo)),
		minio.PutObjectOptions{
			ContentType:  "application/pdf",
			UserMetadata: map[string]string{"nome": nome},
		})
	if err != nil {
		return "", erros.Armazenamento("falha ao publicar artefato", err)
	}
	return cid, nil
}

func (a *ArmazemMinio) Buscar(ctx context.Context, cid string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	obj, err := a.client.GetObject(ctx, a.bucket, cid, minio.GetObjectOptions{})
	if err != nil {
		return nil, erros.Armazenamento("falha ao buscar artefato", err)
	}
	defer obj.Close()

	conteudo, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, erros.NaoEncontrado("artefato não encontrado: " + cid)
		}
		return nil, erros.Armazenamento("falha ao ler artefato", err)
	}
	return conteudo, nil
}

func (a *ArmazemMinio) Existe(ctx context.Context, cid string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	_, err := a.client.StatObject(ctx, a.bucket, cid, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, erros.Armazenamento("falha ao checar artefato", err)
	}
	return true, nil
}
