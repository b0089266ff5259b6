package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// mockS3Client implements s3Client for testing.
type mockS3Client struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, _ := io.ReadAll(input.Body)
	m.objects[*input.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *mockS3Client) DeleteObject(_ context.Context, input *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, *input.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestNewDisabledWithoutConfig(t *testing.T) {
	s := New(Config{Bucket: "reports", AccessKey: "k", SecretKey: "s"})
	if s.Enabled() {
		t.Fatal("store without passphrase should be disabled")
	}
	if _, err := s.Put(context.Background(), "u1", 1, []byte("pdf")); !errors.Is(err, ErrDisabled) {
		t.Errorf("err = %v, want ErrDisabled", err)
	}

	s = New(Config{Bucket: "reports", AccessKey: "k", SecretKey: "s", Passphrase: "p"})
	if !s.Enabled() {
		t.Error("complete config should enable the store")
	}
}

func TestPutGetDelete(t *testing.T) {
	mock := newMockS3()
	s := &Store{client: mock, bucket: "reports", passphrase: "correct horse"}
	ctx := context.Background()
	data := []byte("%PDF-1.3 report body")

	key, err := s.Put(ctx, "u1", 42, data)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if key != "reports/u1/42.pdf.enc" {
		t.Errorf("key = %q", key)
	}
	if bytes.Contains(mock.objects[key], data) {
		t.Error("stored object must not contain plaintext")
	}

	got, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("round trip mismatch: %q", got)
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, key); err == nil {
		t.Error("expected error after delete")
	}
}

func TestPutUploadError(t *testing.T) {
	mock := newMockS3()
	mock.putErr = errors.New("bucket gone")
	s := &Store{client: mock, bucket: "reports", passphrase: "p"}

	if _, err := s.Put(context.Background(), "u1", 1, []byte("x")); err == nil {
		t.Fatal("expected upload error")
	}
}

func TestDecryptWrongPassphrase(t *testing.T) {
	sealed, err := Encrypt([]byte("secret"), "right")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := Decrypt(sealed, "wrong"); err == nil {
		t.Error("expected error for wrong passphrase")
	}
	if _, err := Decrypt(sealed[:10], "right"); !errors.Is(err, ErrCiphertextTooShort) {
		t.Errorf("err = %v, want ErrCiphertextTooShort", err)
	}
}

func TestEncryptUsesFreshSalt(t *testing.T) {
	a, _ := Encrypt([]byte("same"), "p")
	b, _ := Encrypt([]byte("same"), "p")
	if bytes.Equal(a[:saltSize], b[:saltSize]) {
		t.Error("expected different salts")
	}
}
