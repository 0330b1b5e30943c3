package dispatch

import (
	"encoding/json"

	"github.com/invopop/jsonschema"

	"github.com/capitalize-ai/reservation-assistant/internal/llm"
)

type toolSpec struct {
	name        string
	description string
	args        any
}

var toolSpecs = []toolSpec{
	{
		name:        ToolGetRoomPrices,
		description: "List every bookable room with its nightly price and capacity. Call this before stating any price.",
		args:        &GetRoomPricesArgs{},
	},
	{
		name:        ToolCheckAvailability,
		description: "Find rooms free for the whole stay. Returns nightly and total prices for each free room.",
		args:        &CheckAvailabilityArgs{},
	},
	{
		name:        ToolCreateReservation,
		description: "Create a reservation once availability was checked and the guest gave full name, phone and email.",
		args:        &CreateReservationArgs{},
	},
	{
		name:        ToolGetReservation,
		description: "Look up a reservation by reference code or id, including cancelled ones.",
		args:        &ReservationRefArgs{},
	},
	{
		name:        ToolCancelReservation,
		description: "Cancel a reservation. Confirm with the guest before calling.",
		args:        &ReservationRefArgs{},
	},
	{
		name:        ToolUpdateReservation,
		description: "Change dates, guest count, room or contact details of an active reservation. Send only the fields that change.",
		args:        &UpdateReservationArgs{},
	},
}

// Definitions returns the fixed tool catalog offered to the model.
func Definitions() []llm.ToolDefinition {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		ExpandedStruct:            true,
	}

	defs := make([]llm.ToolDefinition, 0, len(toolSpecs))
	for _, spec := range toolSpecs {
		defs = append(defs, llm.ToolDefinition{
			Name:        spec.name,
			Description: spec.description,
			Parameters:  schemaMap(reflector.Reflect(spec.args)),
		})
	}
	return defs
}

// schemaMap flattens a reflected schema into the plain object providers expect.
func schemaMap(schema *jsonschema.Schema) map[string]any {
	out := map[string]any{"type": "object", "properties": map[string]any{}}
	data, err := json.Marshal(schema)
	if err != nil {
		return out
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	delete(out, "$schema")
	delete(out, "$id")
	if _, ok := out["properties"]; !ok {
		out["properties"] = map[string]any{}
	}
	return out
}
