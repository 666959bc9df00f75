// Package protocol defines the wire-level command and response descriptors
// exchanged with seltzerd clients. Commands are a tagged variant: Type
// discriminates, and each variant reads only the fields its category needs.
package protocol

// CommandType discriminates command variants on the wire.
type CommandType string

const (
	// Lifecycle commands.
	CommandStart CommandType = "start"
	CommandExit  CommandType = "exit"

	// Simple navigation commands.
	CommandBack    CommandType = "back"
	CommandForward CommandType = "forward"
	CommandGoTo    CommandType = "goTo"
	CommandGetURL  CommandType = "getUrl"

	// Cookie commands.
	CommandGetCookie     CommandType = "getCookie"
	CommandGetCookies    CommandType = "getCookies"
	CommandGetCookieFile CommandType = "getCookieFile"

	// Selector-based commands.
	CommandClick      CommandType = "click"
	CommandDelete     CommandType = "delete"
	CommandFillField  CommandType = "fillField"
	CommandSendKey    CommandType = "sendKey"
	CommandSendKeys   CommandType = "sendKeys"
	CommandCount      CommandType = "count"
	CommandFormSubmit CommandType = "formSubmit"

	// Wait-based commands.
	CommandWait CommandType = "wait"

	// Chain batches.
	CommandChain CommandType = "chain"
)

// Selector describes how to resolve elements for selector-based commands.
type Selector struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Command is the descriptor for one client request. ID names the target
// session; inside a chain it doubles as the correlation token every
// sub-command must carry.
type Command struct {
	Type CommandType `json:"type"`
	ID   string      `json:"id"`

	// Navigation payload.
	URL string `json:"url,omitempty"`

	// Selector payload, shared by selector- and wait-based commands.
	Selector Selector `json:"selector,omitempty"`

	// Input payload.
	Text string `json:"text,omitempty"`
	Key  string `json:"key,omitempty"`

	// Cookie payload.
	CookieName  string   `json:"cookieName,omitempty"`
	CookieNames []string `json:"cookieNames,omitempty"`

	// Wait payload. Seconds bounds the wait; Match carries the expected
	// title or URL text for the conditions that compare against one.
	Condition string `json:"condition,omitempty"`
	Seconds   int    `json:"seconds,omitempty"`
	Match     string `json:"match,omitempty"`

	// Chain payload. Sub-commands may themselves be chains.
	Commands []Command `json:"commands,omitempty"`
}
