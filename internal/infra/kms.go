package infra

import (
	"context"
	"errors"
	"fmt"
	"hash/crc32"

	kms "cloud.google.com/go/kms/apiv1"
	kmspb "cloud.google.com/go/kms/apiv1/kmspb"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const kmsTracerName = "key-protection-service/internal/infra/kms"

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// errKMSIntegrity は送受信データのチェックサムが一致しないことを表す。
var errKMSIntegrity = errors.New("kms response failed integrity check")

func crc32c(data []byte) int64 {
	return int64(crc32.Checksum(data, crc32cTable))
}

// KMSClient はデータ鍵をCloud KMSで包む/取り出す。
type KMSClient struct {
	client  *kms.KeyManagementClient
	keyName string
}

// NewKMSClient は鍵暗号化に使うKMS鍵名を指定してKMSClientを生成する。
func NewKMSClient(ctx context.Context, keyName string) (*KMSClient, error) {
	if keyName == "" {
		return nil, errors.New("KMS_KEY_NAME environment variable is required")
	}

	client, err := kms.NewKeyManagementClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating KMS client: %w", err)
	}

	return &KMSClient{
		client:  client,
		keyName: keyName,
	}, nil
}

// Encrypt はデータ鍵をCloud KMSで暗号化する。
// 送信前後のCRC32Cを照合し、経路上の破損を検出する。
func (c *KMSClient) Encrypt(ctx context.Context, plaintext []byte) (_ []byte, err error) {
	ctx, span := otel.Tracer(kmsTracerName).Start(ctx, "kms.Encrypt")
	span.SetAttributes(attribute.String("kms.key_name", c.keyName))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "encrypt failed")
		}
		span.End()
	}()

	resp, err := c.client.Encrypt(ctx, &kmspb.EncryptRequest{
		Name:            c.keyName,
		Plaintext:       plaintext,
		PlaintextCrc32C: wrapperspb.Int64(crc32c(plaintext)),
	})
	if err != nil {
		return nil, fmt.Errorf("encrypting: %w", err)
	}
	if !resp.VerifiedPlaintextCrc32C {
		return nil, fmt.Errorf("encrypting: %w: plaintext checksum not verified", errKMSIntegrity)
	}
	if resp.CiphertextCrc32C == nil || resp.CiphertextCrc32C.Value != crc32c(resp.Ciphertext) {
		return nil, fmt.Errorf("encrypting: %w: ciphertext checksum mismatch", errKMSIntegrity)
	}
	return resp.Ciphertext, nil
}

// Decrypt は包まれたデータ鍵をCloud KMSで復号する。
func (c *KMSClient) Decrypt(ctx context.Context, ciphertext []byte) (_ []byte, err error) {
	ctx, span := otel.Tracer(kmsTracerName).Start(ctx, "kms.Decrypt")
	span.SetAttributes(attribute.String("kms.key_name", c.keyName))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "decrypt failed")
		}
		span.End()
	}()

	resp, err := c.client.Decrypt(ctx, &kmspb.DecryptRequest{
		Name:             c.keyName,
		Ciphertext:       ciphertext,
		CiphertextCrc32C: wrapperspb.Int64(crc32c(ciphertext)),
	})
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}
	if resp.PlaintextCrc32C == nil || resp.PlaintextCrc32C.Value != crc32c(resp.Plaintext) {
		return nil, fmt.Errorf("decrypting: %w: plaintext checksum mismatch", errKMSIntegrity)
	}
	return resp.Plaintext, nil
}

// Close はKMSクライアントを閉じる。
func (c *KMSClient) Close() error {
	return c.client.Close()
}
