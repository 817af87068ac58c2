package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var (
	saveProperty = map[string]interface{}{
		"type":        "boolean",
		"description": "Also write the change to the configuration file. Default false",
		"default":     false,
	}
	pathProperty = map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
	maxWidthProperty = map[string]interface{}{
		"type":        "integer",
		"description": "Downscale returned images to at most this width (0 keeps full size). Default 640",
		"default":     640,
	}
	hsvProperty = map[string]interface{}{
		"type":        "array",
		"items":       map[string]interface{}{"type": "integer"},
		"minItems":    3,
		"maxItems":    3,
		"description": "[H, S, V] with H in 0-179 and S, V in 0-255",
	}
)

func noArgs() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Pipeline state
		{
			Name:        "markers_status",
			Description: "Report frames processed, the stabilizer window, the last emitted code, remaining cooldowns and recent dispatches.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"recent": map[string]interface{}{
						"type":        "integer",
						"description": "Number of journal entries to include. Default 10",
						"default":     10,
					},
				},
			},
		},
		{
			Name:        "markers_reset",
			Description: "Clear the stabilizer history and the cooldown table so the next stable marker fires again.",
			InputSchema: noArgs(),
		},
		{
			Name:        "markers_trigger",
			Description: "Dispatch an action code by hand. The cooldown still applies.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"code": map[string]interface{}{
						"type":        "string",
						"description": "Action code, e.g. \"B\"",
					},
				},
				"required": []string{"code"},
			},
		},
		{
			Name:        "markers_test_actuator",
			Description: "Send the actuator's test signal (serial 't' byte or LED blink sequence).",
			InputSchema: noArgs(),
		},

		// Tuning
		{
			Name:        "markers_get_tuning",
			Description: "Return every runtime-adjustable threshold, weight and window setting.",
			InputSchema: noArgs(),
		},
		{
			Name:        "markers_set_tuning",
			Description: "Change tuning values. Only the named fields change; the result is validated before it takes effect at the next frame.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"values": map[string]interface{}{
						"type":        "object",
						"description": "Fields to change, using the names returned by markers_get_tuning (e.g. {\"confidence_threshold\": 0.75, \"cooldown\": \"3s\"})",
					},
					"save": saveProperty,
				},
				"required": []string{"values"},
			},
		},

		// Color profiles
		{
			Name:        "markers_list_profiles",
			Description: "List the active color profiles with their HSV bounds and a preview swatch color.",
			InputSchema: noArgs(),
		},
		{
			Name:        "markers_set_profile",
			Description: "Add or replace a color profile.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"name": map[string]interface{}{
						"type":        "string",
						"description": "Profile name, e.g. \"Red\"",
					},
					"lower": hsvProperty,
					"upper": hsvProperty,
					"save":  saveProperty,
				},
				"required": []string{"name", "lower", "upper"},
			},
		},
		{
			Name:        "markers_delete_profile",
			Description: "Remove a color profile.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"name": map[string]interface{}{
						"type":        "string",
						"description": "Profile name",
					},
					"save": saveProperty,
				},
				"required": []string{"name"},
			},
		},
		{
			Name:        "markers_save_profiles",
			Description: "Write every active color profile to the colors file.",
			InputSchema: noArgs(),
		},

		// Mapping
		{
			Name:        "markers_set_mapping",
			Description: "Replace the (color, shape) to action code mapping.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"entries": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"color": map[string]interface{}{"type": "string"},
								"shape": map[string]interface{}{
									"type": "string",
									"enum": []string{"Triangle", "Square"},
								},
								"code": map[string]interface{}{"type": "string"},
							},
							"required": []string{"color", "shape", "code"},
						},
					},
					"save": saveProperty,
				},
				"required": []string{"entries"},
			},
		},

		// Inspection
		{
			Name:        "markers_detect_image",
			Description: "Run detection on an image file with the current configuration, without touching the stabilizer or dispatcher. Optionally returns the annotated frame as base64 PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"region": map[string]interface{}{
						"type":        "object",
						"description": "Only detect inside this rectangle (x2,y2 exclusive). Detections are relative to (x1,y1). Default the whole image",
						"properties": map[string]interface{}{
							"x1": map[string]interface{}{"type": "integer"},
							"y1": map[string]interface{}{"type": "integer"},
							"x2": map[string]interface{}{"type": "integer"},
							"y2": map[string]interface{}{"type": "integer"},
						},
						"required": []string{"x1", "y1", "x2", "y2"},
					},
					"annotate": map[string]interface{}{
						"type":        "boolean",
						"description": "Include the annotated frame. Default false",
						"default":     false,
					},
					"max_width": maxWidthProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "markers_debug_masks",
			Description: "Return the cleaned binary mask for each color profile (or one named color) as base64 PNG, for tuning HSV bounds.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"color": map[string]interface{}{
						"type":        "string",
						"description": "Only this profile. Default all profiles",
					},
					"union": map[string]interface{}{
						"type":        "boolean",
						"description": "Also return the union of all masks. Default false",
						"default":     false,
					},
					"max_width": maxWidthProperty,
				},
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
