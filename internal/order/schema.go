package order

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed order_payload.schema.json
var payloadSchema []byte

const payloadSchemaURL = "https://storefront.local/schemas/order_payload.schema.json"

func compilePayloadSchema() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(payloadSchemaURL, bytes.NewReader(payloadSchema)); err != nil {
		return nil, fmt.Errorf("order schema load failed: %w", err)
	}
	s, err := c.Compile(payloadSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("order schema compile failed: %w", err)
	}
	return s, nil
}

// validatePayload checks the payload as it will be sent on the wire.
func validatePayload(s *jsonschema.Schema, p *domain.OrderPayload) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode order payload: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("decode order payload: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	return nil
}
