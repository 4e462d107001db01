package agent

// BlockRequest asks the agent to run one block.
type BlockRequest struct {
	Id     string                 `json:"id"`
	Opcode string                 `json:"opcode"`
	Args   map[string]interface{} `json:"args"`
}

// BlockResponse answers a BlockRequest. Timed blocks answer once their
// duration has elapsed.
type BlockResponse struct {
	Id    string      `json:"id"`
	Value interface{} `json:"value,omitempty"`
	Error string      `json:"error,omitempty"`
}

type ParamInfo struct {
	Name    string      `json:"name"`
	Type    string      `json:"type"`
	Menu    string      `json:"menu,omitempty"`
	Options []string    `json:"options,omitempty"`
	Default interface{} `json:"default"`
}

type BlockInfo struct {
	Opcode string      `json:"opcode"`
	Kind   string      `json:"kind"`
	Text   string      `json:"text"`
	Params []ParamInfo `json:"params"`
}
