package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

type secretValueAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// CurationSecrets resolves the credentials the BFF reads at startup, such as
// curation/ADMIN_API_KEY. Values are read once by config loading and are not
// cached here.
type CurationSecrets struct {
	api secretValueAPI
}

func NewCurationSecrets(cfg sdkaws.Config) *CurationSecrets {
	return &CurationSecrets{api: secretsmanager.NewFromConfig(cfg)}
}

// GetSecret returns the current value of the named secret. A secret stored
// as a JSON object is looked up by the last segment of its name.
func (s *CurationSecrets) GetSecret(ctx context.Context, name string) (string, error) {
	out, err := s.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId:     sdkaws.String(name),
		VersionStage: sdkaws.String("AWSCURRENT"),
	})
	if err != nil {
		return "", fmt.Errorf("get secret %s: %w", name, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", name)
	}
	return secretField(name, *out.SecretString)
}

// secretField unwraps key/value secrets. Plain strings are returned trimmed.
func secretField(name, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "{") {
		return raw, nil
	}
	var fields map[string]string
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return "", fmt.Errorf("secret %s is not a flat JSON object: %w", name, err)
	}
	key := path.Base(name)
	v, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("secret %s has no %q field", name, key)
	}
	return v, nil
}
