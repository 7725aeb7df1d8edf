package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileClient serves provider payloads from local JSON fixture files.
// It backs local development and tests, mirroring the fixture names the
// hosted provider exports use.
type FileClient struct {
	Dir string
}

func NewFileClient(dir string) *FileClient {
	return &FileClient{Dir: dir}
}

func (c *FileClient) Name() string { return "file" }

// ExchangeAuthCode accepts any code and returns a static token; the
// fixture files require no authentication.
func (c *FileClient) ExchangeAuthCode(ctx context.Context, code string) (string, error) {
	return "file-access-token", nil
}

func (c *FileClient) FetchAccounts(ctx context.Context, accessToken string) (*AccountsPayload, error) {
	var payload AccountsPayload
	if err := c.read("tink-accounts.json", &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *FileClient) FetchTransactions(ctx context.Context, accessToken string) (*TransactionsPayload, error) {
	var payload TransactionsPayload
	if err := c.read("tink-transactions.json", &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *FileClient) ConsentURL(redirectURI, state string) string {
	return redirectURI + "?code=file-auth-code&state=" + state
}

func (c *FileClient) read(name string, dst interface{}) error {
	data, err := os.ReadFile(filepath.Join(c.Dir, name))
	if err != nil {
		return fmt.Errorf("%w: read fixture %s: %v", ErrUnavailable, name, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: decode fixture %s: %v", ErrUnavailable, name, err)
	}
	return nil
}
