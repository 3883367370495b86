package responder

import "github.com/invopop/jsonschema"

// ContractSchema returns the JSON Schemas webhook implementers build against.
func ContractSchema() map[string]*jsonschema.Schema {
	reflector := &jsonschema.Reflector{
		DoNotReference: true,
	}
	return map[string]*jsonschema.Schema{
		"request": reflector.Reflect(&WebhookRequest{}),
		"reply":   reflector.Reflect(&WebhookReply{}),
	}
}
