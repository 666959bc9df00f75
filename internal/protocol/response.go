package protocol

// ResponseType discriminates response variants on the wire.
type ResponseType string

const (
	ResponseBasic        ResponseType = "basic"
	ResponseSingleResult ResponseType = "singleResult"
	ResponseMultiResult  ResponseType = "multiResult"
	ResponseChain        ResponseType = "chain"
)

// Response is the outcome of one command. ID always echoes the originating
// command's target session id.
type Response struct {
	Type    ResponseType `json:"type"`
	ID      string       `json:"id"`
	Success bool         `json:"success"`

	Result    string     `json:"result,omitempty"`
	Results   []string   `json:"results,omitempty"`
	Responses []Response `json:"responses,omitempty"`
}

// NewResponse builds a basic response with no result payload.
func NewResponse(id string, success bool) Response {
	return Response{Type: ResponseBasic, ID: id, Success: success}
}

// SingleResult builds a successful response carrying one value.
func SingleResult(id, result string) Response {
	return Response{Type: ResponseSingleResult, ID: id, Success: true, Result: result}
}

// NewChainResponse builds the aggregate for a chain. It starts successful;
// executing sub-commands ANDs their outcomes into it.
func NewChainResponse(id string) Response {
	return Response{Type: ResponseChain, ID: id, Success: true}
}
