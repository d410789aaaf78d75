package shell

import (
	"context"
	"encoding/json"
	"fmt"
)

// IsolationReport is the outcome of a script-world isolation check.
type IsolationReport struct {
	Isolated          bool `json:"isolated"`
	MainSeesIsolated  bool `json:"mainSeesIsolated"`
	IsolatedSeesMain  bool `json:"isolatedSeesMain"`
	SharedDOMVisible  bool `json:"sharedDomVisible"`
}

// CreateIsolatedWorld creates an isolated script world in a target's
// top-level frame and returns its execution context ID.
func (c *Client) CreateIsolatedWorld(ctx context.Context, targetID string, worldName string) (int64, error) {
	sessionID, err := c.attachToTarget(ctx, targetID)
	if err != nil {
		return 0, err
	}

	_, err = c.CallSession(ctx, sessionID, "Page.enable", nil)
	if err != nil {
		return 0, fmt.Errorf("enabling Page domain: %w", err)
	}

	frameID, err := c.frameID(ctx, sessionID)
	if err != nil {
		return 0, err
	}

	result, err := c.CallSession(ctx, sessionID, "Page.createIsolatedWorld", map[string]interface{}{
		"frameId":   frameID,
		"worldName": worldName,
	})
	if err != nil {
		return 0, fmt.Errorf("creating isolated world: %w", err)
	}

	var resp struct {
		ExecutionContextID int64 `json:"executionContextId"`
	}
	if err := json.Unmarshal(result, &resp); err != nil {
		return 0, fmt.Errorf("parsing isolated world response: %w", err)
	}

	return resp.ExecutionContextID, nil
}

// EvalInWorld evaluates an expression in a specific execution context.
func (c *Client) EvalInWorld(ctx context.Context, targetID string, contextID int64, expression string) (*EvalResult, error) {
	sessionID, err := c.attachToTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}

	result, err := c.CallSession(ctx, sessionID, "Runtime.evaluate", map[string]interface{}{
		"expression":    expression,
		"contextId":     contextID,
		"returnByValue": true,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluating in world %d: %w", contextID, err)
	}

	var resp struct {
		Result struct {
			Type  string      `json:"type"`
			Value interface{} `json:"value"`
		} `json:"result"`
		ExceptionDetails *struct {
			Text string `json:"text"`
		} `json:"exceptionDetails"`
	}
	if err := json.Unmarshal(result, &resp); err != nil {
		return nil, fmt.Errorf("parsing eval response: %w", err)
	}

	if resp.ExceptionDetails != nil {
		return nil, fmt.Errorf("JS exception: %s", resp.ExceptionDetails.Text)
	}

	return &EvalResult{
		Value: resp.Result.Value,
		Type:  resp.Result.Type,
	}, nil
}

// AddPreloadScript registers a script to run before any page script on every
// new document. If worldName is non-empty the script runs in that isolated
// world instead of the main world. Returns an identifier usable with
// RemovePreloadScript.
func (c *Client) AddPreloadScript(ctx context.Context, targetID string, source string, worldName string) (string, error) {
	sessionID, err := c.attachToTarget(ctx, targetID)
	if err != nil {
		return "", err
	}

	_, err = c.CallSession(ctx, sessionID, "Page.enable", nil)
	if err != nil {
		return "", fmt.Errorf("enabling Page domain: %w", err)
	}

	params := map[string]interface{}{
		"source": source,
	}
	if worldName != "" {
		params["worldName"] = worldName
	}

	result, err := c.CallSession(ctx, sessionID, "Page.addScriptToEvaluateOnNewDocument", params)
	if err != nil {
		return "", fmt.Errorf("adding preload script: %w", err)
	}

	var resp struct {
		Identifier string `json:"identifier"`
	}
	if err := json.Unmarshal(result, &resp); err != nil {
		return "", fmt.Errorf("parsing preload response: %w", err)
	}

	return resp.Identifier, nil
}

// RemovePreloadScript removes a previously registered preload script.
func (c *Client) RemovePreloadScript(ctx context.Context, targetID string, identifier string) error {
	sessionID, err := c.attachToTarget(ctx, targetID)
	if err != nil {
		return err
	}

	_, err = c.CallSession(ctx, sessionID, "Page.removeScriptToEvaluateOnNewDocument", map[string]string{
		"identifier": identifier,
	})
	if err != nil {
		return fmt.Errorf("removing preload script: %w", err)
	}
	return nil
}

// VerifyIsolation checks that an isolated world and the page's main world
// cannot see each other's JavaScript globals while sharing the same DOM.
// It plants a marker in each world, then looks for each marker from the
// other side.
func (c *Client) VerifyIsolation(ctx context.Context, targetID string) (*IsolationReport, error) {
	contextID, err := c.CreateIsolatedWorld(ctx, targetID, "winprobe_isolation_check")
	if err != nil {
		return nil, err
	}

	if _, err := c.Eval(ctx, targetID, `window.__mainMarker = "main"`); err != nil {
		return nil, fmt.Errorf("planting main-world marker: %w", err)
	}
	if _, err := c.EvalInWorld(ctx, targetID, contextID, `window.__isolatedMarker = "isolated"`); err != nil {
		return nil, fmt.Errorf("planting isolated-world marker: %w", err)
	}

	mainSees, err := c.Eval(ctx, targetID, `typeof window.__isolatedMarker !== "undefined"`)
	if err != nil {
		return nil, err
	}
	isolatedSees, err := c.EvalInWorld(ctx, targetID, contextID, `typeof window.__mainMarker !== "undefined"`)
	if err != nil {
		return nil, err
	}

	// Both worlds must see the same DOM: plant a node from the isolated
	// world, look for it from the main world.
	_, err = c.EvalInWorld(ctx, targetID, contextID, `{
		const el = document.createElement("div");
		el.id = "__winprobe_dom_marker";
		document.documentElement.appendChild(el);
	}`)
	if err != nil {
		return nil, fmt.Errorf("planting DOM marker: %w", err)
	}
	domVisible, err := c.Eval(ctx, targetID, `document.getElementById("__winprobe_dom_marker") !== null`)
	if err != nil {
		return nil, err
	}

	report := &IsolationReport{
		MainSeesIsolated: mainSees.Value == true,
		IsolatedSeesMain: isolatedSees.Value == true,
		SharedDOMVisible: domVisible.Value == true,
	}
	report.Isolated = !report.MainSeesIsolated && !report.IsolatedSeesMain && report.SharedDOMVisible

	return report, nil
}
