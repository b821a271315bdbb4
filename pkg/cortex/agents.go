package cortex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"go.uber.org/zap"
)

// AgentSummary is one entry from the agent listing endpoint.
type AgentSummary struct {
	Name      string `json:"name"`
	Comment   string `json:"comment"`
	CreatedOn string `json:"created_on"`
	Owner     string `json:"owner"`
}

// Agent is the detailed description of a Cortex agent, with its spec parsed.
type Agent struct {
	Name      string
	Database  string
	Schema    string
	Owner     string
	CreatedOn string
	Comment   string

	// Model is the configured orchestration model, empty when the spec
	// leaves it on auto.
	Model string

	// SampleQuestions are suggested prompts from the agent instructions.
	SampleQuestions []string

	// ToolCount is the number of tools the agent is configured with.
	ToolCount int

	// Spec is the full parsed agent_spec document.
	Spec map[string]any
}

// QualifiedName returns database.schema.name.
func (a *Agent) QualifiedName() string {
	return a.Database + "." + a.Schema + "." + a.Name
}

// agentDetail is the raw describe-agent response. The agent_spec field
// arrives as a JSON document encoded in a string.
type agentDetail struct {
	Name      string          `json:"name"`
	Owner     string          `json:"owner"`
	CreatedOn string          `json:"created_on"`
	Comment   string          `json:"comment"`
	AgentSpec json.RawMessage `json:"agent_spec"`
}

// ListAgents lists the agents in a database schema.
func (c *Client) ListAgents(ctx context.Context, database, schema string) ([]AgentSummary, error) {
	path := fmt.Sprintf("/databases/%s/schemas/%s/agents",
		url.PathEscape(database), url.PathEscape(schema))

	var agents []AgentSummary
	if err := c.doJSON(ctx, "GET", path, nil, &agents); err != nil {
		return nil, fmt.Errorf("listing agents in %s.%s: %w", database, schema, err)
	}

	c.logger.Debug("listed agents",
		zap.String("database", database),
		zap.String("schema", schema),
		zap.Int("count", len(agents)))

	return agents, nil
}

// DescribeAgent fetches an agent's full configuration, parsing its spec to
// surface the orchestration model and sample questions.
func (c *Client) DescribeAgent(ctx context.Context, database, schema, name string) (*Agent, error) {
	path := fmt.Sprintf("/databases/%s/schemas/%s/agents/%s",
		url.PathEscape(database), url.PathEscape(schema), url.PathEscape(name))

	var detail agentDetail
	if err := c.doJSON(ctx, "GET", path, nil, &detail); err != nil {
		return nil, fmt.Errorf("describing agent %s.%s.%s: %w", database, schema, name, err)
	}

	agent := &Agent{
		Name:      detail.Name,
		Database:  database,
		Schema:    schema,
		Owner:     detail.Owner,
		CreatedOn: detail.CreatedOn,
		Comment:   detail.Comment,
	}
	if agent.Name == "" {
		agent.Name = name
	}

	spec := parseAgentSpec(detail.AgentSpec)
	agent.Spec = spec

	if models, ok := spec["models"].(map[string]any); ok {
		if m, ok := models["orchestration"].(string); ok && m != "auto" {
			agent.Model = m
		}
	}

	if tools, ok := spec["tools"].([]any); ok {
		agent.ToolCount = len(tools)
	}

	if instructions, ok := spec["instructions"].(map[string]any); ok {
		if questions, ok := instructions["sample_questions"].([]any); ok {
			for _, q := range questions {
				switch v := q.(type) {
				case string:
					agent.SampleQuestions = append(agent.SampleQuestions, v)
				case map[string]any:
					if s, ok := v["question"].(string); ok {
						agent.SampleQuestions = append(agent.SampleQuestions, s)
					}
				}
			}
		}
	}

	return agent, nil
}

// parseAgentSpec decodes the agent_spec field, which the API returns either
// as an embedded object or as a JSON document in a string. Unparseable
// specs yield an empty map rather than an error.
func parseAgentSpec(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return map[string]any{}
	}

	var spec map[string]any
	if err := json.Unmarshal(raw, &spec); err == nil {
		return spec
	}

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		if err := json.Unmarshal([]byte(encoded), &spec); err == nil {
			return spec
		}
	}

	return map[string]any{}
}
