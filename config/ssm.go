package config

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ParameterGetter is the subset of the SSM client used to resolve parameters.
type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// NewParameterGetter builds an SSM client from the default AWS credential chain.
func NewParameterGetter(ctx context.Context) (ParameterGetter, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return ssm.NewFromConfig(awsCfg), nil
}

// ResolveBaseURL replaces BaseURL with the value stored under BaseURLParameter.
// It is a no-op when no parameter is configured.
func (m *MarketConfig) ResolveBaseURL(ctx context.Context, getter ParameterGetter) error {
	if m.BaseURLParameter == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	value, err := getParameterStoreValue(ctx, getter, m.BaseURLParameter, true)
	if err != nil {
		return err
	}
	m.BaseURL = value
	return nil
}

func getParameterStoreValue(ctx context.Context, getter ParameterGetter, parameterName string, decrypt bool) (string, error) {
	input := &ssm.GetParameterInput{
		Name:           &parameterName,
		WithDecryption: &decrypt,
	}

	result, err := getter.GetParameter(ctx, input)
	if err != nil {
		return "", fmt.Errorf("get parameter %s: %w", parameterName, err)
	}

	if result.Parameter == nil || result.Parameter.Value == nil || *result.Parameter.Value == "" {
		return "", fmt.Errorf("parameter %s has no value", parameterName)
	}

	return *result.Parameter.Value, nil
}
