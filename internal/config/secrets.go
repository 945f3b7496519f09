package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ParameterStore is the part of the SSM client used to read secrets
type ParameterStore interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// NewSSMClient creates an SSM client from the default AWS credential chain
func NewSSMClient(ctx context.Context, region string) (*ssm.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error loading AWS config: %w", err)
	}
	return ssm.NewFromConfig(cfg), nil
}

// NeedsSecrets reports whether an API key must come from SSM
func (c *Config) NeedsSecrets() bool {
	return (c.NewsAPIKey == "" && c.AWSNewsParameter != "") ||
		(c.AlphaVantageKey == "" && c.AWSAlphaVantageParameter != "")
}

// ResolveSecrets fills API keys that are unset in the environment from their
// named SSM parameters
func (c *Config) ResolveSecrets(ctx context.Context, store ParameterStore) error {
	if c.NewsAPIKey == "" && c.AWSNewsParameter != "" {
		v, err := getParameter(ctx, store, c.AWSNewsParameter)
		if err != nil {
			return err
		}
		c.NewsAPIKey = v
	}
	if c.AlphaVantageKey == "" && c.AWSAlphaVantageParameter != "" {
		v, err := getParameter(ctx, store, c.AWSAlphaVantageParameter)
		if err != nil {
			return err
		}
		c.AlphaVantageKey = v
	}
	return nil
}

func getParameter(ctx context.Context, store ParameterStore, name string) (string, error) {
	out, err := store.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("error fetching parameter %s: %w", name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("parameter %s has no value", name)
	}
	return *out.Parameter.Value, nil
}
