package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"

	"github.com/ironsheep/markerctl/internal/config"
	"github.com/ironsheep/markerctl/internal/detection"
	"github.com/ironsheep/markerctl/internal/imaging"
	"github.com/ironsheep/markerctl/internal/journal"
	"github.com/ironsheep/markerctl/internal/pipeline"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "markers_status").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.log.Warnf("mcp: %s: %v", params.Name, err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	switch name {
	// Pipeline state
	case "markers_status":
		return s.handleStatus(args)
	case "markers_reset":
		return s.handleReset(args)
	case "markers_trigger":
		return s.handleTrigger(args)
	case "markers_test_actuator":
		return s.handleTestActuator(args)

	// Tuning
	case "markers_get_tuning":
		return s.pipe.Snapshot().Tuning, nil
	case "markers_set_tuning":
		return s.handleSetTuning(args)

	// Color profiles
	case "markers_list_profiles":
		return s.handleListProfiles(args)
	case "markers_set_profile":
		return s.handleSetProfile(args)
	case "markers_delete_profile":
		return s.handleDeleteProfile(args)
	case "markers_save_profiles":
		return s.handleSaveProfiles(args)

	// Mapping
	case "markers_set_mapping":
		return s.handleSetMapping(args)

	// Inspection
	case "markers_detect_image":
		return s.handleDetectImage(args)
	case "markers_debug_masks":
		return s.handleDebugMasks(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func savePath(path, what string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("no %s file configured", what)
	}
	return path, nil
}

// === Pipeline State Handlers ===

type statusArgs struct {
	Recent int `json:"recent"`
}

// StatusResult is returned by markers_status.
type StatusResult struct {
	pipeline.Status
	RunID  string          `json:"run_id,omitempty"`
	Recent []journal.Entry `json:"recent_dispatches,omitempty"`
	Counts map[string]int  `json:"dispatch_counts,omitempty"`
}

func (s *Server) handleStatus(args json.RawMessage) (interface{}, error) {
	a := statusArgs{Recent: 10}
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	res := StatusResult{Status: s.pipe.Status()}
	// The last frame's images are not useful as JSON.
	if res.LastFrame != nil {
		lf := *res.LastFrame
		lf.Annotated, lf.Masks = nil, nil
		res.LastFrame = &lf
	}

	if j := s.opts.Journal; j != nil {
		res.RunID = j.RunID()
		recent, err := j.Recent(s.ctx, a.Recent)
		if err != nil {
			return nil, err
		}
		counts, err := j.Counts(s.ctx)
		if err != nil {
			return nil, err
		}
		res.Recent, res.Counts = recent, counts
	}
	return res, nil
}

func (s *Server) handleReset(args json.RawMessage) (interface{}, error) {
	s.pipe.Reset()
	return map[string]interface{}{"reset": true}, nil
}

type triggerArgs struct {
	Code string `json:"code"`
}

func (s *Server) handleTrigger(args json.RawMessage) (interface{}, error) {
	var a triggerArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Code == "" {
		return nil, errors.New("code is required")
	}
	r := s.pipe.Trigger(s.ctx, a.Code)
	return map[string]interface{}{
		"code":      r.Code,
		"outcome":   r.Outcome,
		"remaining": r.Remaining.String(),
		"error":     r.Error(),
	}, nil
}

func (s *Server) handleTestActuator(args json.RawMessage) (interface{}, error) {
	if s.opts.Actuator == nil {
		return nil, errors.New("no actuator configured")
	}
	if err := s.opts.Actuator.Test(s.ctx); err != nil {
		return nil, err
	}
	return map[string]interface{}{"sent": true}, nil
}

// === Tuning Handlers ===

type setTuningArgs struct {
	Values json.RawMessage `json:"values"`
	Save   bool            `json:"save"`
}

func (s *Server) handleSetTuning(args json.RawMessage) (interface{}, error) {
	var a setTuningArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if len(a.Values) == 0 {
		return nil, errors.New("values is required")
	}
	patch, err := config.ParsePatch(a.Values)
	if err != nil {
		return nil, err
	}

	t := patch.Apply(s.pipe.Snapshot().Tuning)
	active := t
	if s.opts.Headless {
		active.Annotate = false
	}
	if err := s.pipe.SetTuning(active); err != nil {
		return nil, err
	}
	if a.Save {
		path, err := savePath(s.opts.Files.Tuning, "tuning")
		if err != nil {
			return nil, err
		}
		if err := config.SaveTuning(path, t); err != nil {
			return nil, err
		}
	}
	return active, nil
}

// === Color Profile Handlers ===

// ProfileInfo describes one color profile.
type ProfileInfo struct {
	config.ColorProfile
	Swatch string `json:"swatch"`

	// Saved is set when the colors file holds a profile of this name.
	Saved bool `json:"saved"`
}

func (s *Server) handleListProfiles(args json.RawMessage) (interface{}, error) {
	ps := s.pipe.Snapshot().Profiles
	out := make([]ProfileInfo, 0, len(ps))
	for _, p := range ps {
		info := ProfileInfo{
			ColorProfile: p,
			Swatch:       imaging.HexSwatch(p.Lower.Array(), p.Upper.Array()),
		}
		if s.opts.Files.Colors != "" {
			saved, err := config.ProfileExists(s.opts.Files.Colors, p.Name, s.log)
			if err != nil {
				return nil, err
			}
			info.Saved = saved
		}
		out = append(out, info)
	}
	return map[string]interface{}{"profiles": out}, nil
}

type setProfileArgs struct {
	Name  string     `json:"name"`
	Lower config.HSV `json:"lower"`
	Upper config.HSV `json:"upper"`
	Save  bool       `json:"save"`
}

func (s *Server) handleSetProfile(args json.RawMessage) (interface{}, error) {
	var a setProfileArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	p := config.ColorProfile{Name: a.Name, Lower: a.Lower, Upper: a.Upper}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.pipe.SetProfiles(s.pipe.Snapshot().Profiles.With(p)); err != nil {
		return nil, err
	}
	if a.Save {
		path, err := savePath(s.opts.Files.Colors, "colors")
		if err != nil {
			return nil, err
		}
		if err := config.SaveProfile(path, p, s.log); err != nil {
			return nil, err
		}
	}
	return ProfileInfo{ColorProfile: p, Swatch: imaging.HexSwatch(p.Lower.Array(), p.Upper.Array()), Saved: a.Save}, nil
}

type deleteProfileArgs struct {
	Name string `json:"name"`
	Save bool   `json:"save"`
}

func (s *Server) handleDeleteProfile(args json.RawMessage) (interface{}, error) {
	var a deleteProfileArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	ps := s.pipe.Snapshot().Profiles
	if _, ok := ps.Get(a.Name); !ok {
		return nil, fmt.Errorf("no profile named %q", a.Name)
	}
	if err := s.pipe.SetProfiles(ps.Without(a.Name)); err != nil {
		return nil, err
	}
	if a.Save {
		path, err := savePath(s.opts.Files.Colors, "colors")
		if err != nil {
			return nil, err
		}
		if _, err := config.DeleteProfile(path, a.Name, s.log); err != nil {
			return nil, err
		}
	}
	return map[string]interface{}{"deleted": a.Name}, nil
}

func (s *Server) handleSaveProfiles(args json.RawMessage) (interface{}, error) {
	path, err := savePath(s.opts.Files.Colors, "colors")
	if err != nil {
		return nil, err
	}
	ps := s.pipe.Snapshot().Profiles
	if err := config.SaveProfiles(path, ps); err != nil {
		return nil, err
	}
	return map[string]interface{}{"path": path, "profiles": ps.Names()}, nil
}

// === Mapping Handlers ===

type setMappingArgs struct {
	Entries []config.MappingEntry `json:"entries"`
	Save    bool                  `json:"save"`
}

func (s *Server) handleSetMapping(args json.RawMessage) (interface{}, error) {
	var a setMappingArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	m, err := config.MappingFromEntries(a.Entries)
	if err != nil {
		return nil, err
	}
	if err := s.pipe.SetMapping(m); err != nil {
		return nil, err
	}
	if a.Save {
		path, err := savePath(s.opts.Files.Mapping, "mapping")
		if err != nil {
			return nil, err
		}
		if err := config.SaveMapping(path, m); err != nil {
			return nil, err
		}
	}
	return map[string]interface{}{"entries": m.Entries(), "codes": m.Codes()}, nil
}

// === Inspection Handlers ===

type detectImageArgs struct {
	Path     string      `json:"path"`
	Region   *regionArgs `json:"region"`
	Annotate bool        `json:"annotate"`
	MaxWidth *int        `json:"max_width"`
}

// regionArgs is a pixel rectangle, (x1,y1) inclusive and (x2,y2) exclusive.
type regionArgs struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

func (r regionArgs) Rect() image.Rectangle {
	return image.Rect(r.X1, r.Y1, r.X2, r.Y2)
}

func maxWidth(w *int) int {
	if w == nil {
		return 640
	}
	return *w
}

// DetectImageResult is returned by markers_detect_image.
type DetectImageResult struct {
	imaging.ImageInfo
	Codes      []string              `json:"codes"`
	Primary    string                `json:"primary,omitempty"`
	Detections []detection.Detection `json:"detections"`
	Candidates int                   `json:"candidates"`
	Rejected   int                   `json:"rejected"`
	Annotated  *imaging.EncodedImage `json:"annotated,omitempty"`
}

func (s *Server) handleDetectImage(args json.RawMessage) (interface{}, error) {
	var a detectImageArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	info, err := imaging.LoadImageInfo(s.cache, a.Path)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	if a.Region != nil {
		// Detections are reported relative to the region's top-left corner.
		if img, err = imaging.Crop(img, a.Region.Rect()); err != nil {
			return nil, err
		}
	}
	det, err := s.pipe.Detect(img)
	if err != nil {
		return nil, err
	}

	res := DetectImageResult{
		ImageInfo:  *info,
		Codes:      det.Codes(),
		Detections: det.Detections,
		Candidates: len(det.Candidates),
		Rejected:   det.Rejected,
	}
	if p, ok := detection.Primary(det.Detections); ok {
		res.Primary = p.Code
	}
	if a.Annotate {
		enc, err := imaging.EncodePNG(detection.Annotate(img, det.Detections), maxWidth(a.MaxWidth))
		if err != nil {
			return nil, err
		}
		res.Annotated = enc
	}
	return res, nil
}

type debugMasksArgs struct {
	Path     string `json:"path"`
	Color    string `json:"color"`
	Union    bool   `json:"union"`
	MaxWidth *int   `json:"max_width"`
}

// MaskImage is one encoded debug mask.
type MaskImage struct {
	Color  string                `json:"color"`
	Pixels int                   `json:"pixels"`
	Image  *imaging.EncodedImage `json:"image"`
}

func (s *Server) handleDebugMasks(args json.RawMessage) (interface{}, error) {
	var a debugMasksArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	snap := s.pipe.Snapshot()
	profiles := snap.Profiles
	if a.Color != "" {
		p, ok := profiles.Get(a.Color)
		if !ok {
			return nil, fmt.Errorf("no profile named %q", a.Color)
		}
		profiles = config.Profiles{p}
	}

	masks := detection.Segment(img, profiles, snap.Tuning)
	out := make([]MaskImage, 0, len(masks)+1)
	encode := func(name string, m *imaging.Mask) error {
		enc, err := imaging.EncodePNG(m.Gray(), maxWidth(a.MaxWidth))
		if err != nil {
			return err
		}
		out = append(out, MaskImage{Color: name, Pixels: m.Count(), Image: enc})
		return nil
	}
	for _, cm := range masks {
		if err := encode(cm.Color, cm.Mask); err != nil {
			return nil, err
		}
	}
	if a.Union && len(masks) > 0 {
		if err := encode("union", detection.UnionMask(masks)); err != nil {
			return nil, err
		}
	}
	return map[string]interface{}{"masks": out}, nil
}
