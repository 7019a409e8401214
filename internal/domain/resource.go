package domain

// ResourceHandle is one of the two variants by which a client hands the
// exporter a readable (or writable) byte source, spec §4.6/§9. Exactly one
// of ClientStream or PresignedRequest is non-nil.
type ResourceHandle struct {
	ClientStream     *ClientStreamResource
	PresignedRequest *PresignedRequestResource

	// ContentEncoding/AcceptEncoding are the optional x_jmp_content_encoding
	// / x_jmp_accept_encoding transport tags carried by both variants.
	ContentEncoding string
	AcceptEncoding  string
}

// ClientStreamResource names an open bidirectional byte stream the client
// has already opened into the session's resource registry (spec §4.6.1).
type ClientStreamResource struct {
	UUID string
}

// PresignedMethod is the HTTP verb of a PresignedRequestResource.
type PresignedMethod string

const (
	PresignedGet PresignedMethod = "GET"
	PresignedPut PresignedMethod = "PUT"
)

// PresignedRequestResource names an external HTTP resource the exporter
// fetches or pushes directly, bypassing the session stream (spec §4.6.2).
type PresignedRequestResource struct {
	Method  PresignedMethod
	URL     string
	Headers map[string]string
}

// IsClientStream reports whether h is the client_stream variant.
func (h ResourceHandle) IsClientStream() bool { return h.ClientStream != nil }

// IsPresignedRequest reports whether h is the presigned_request variant.
func (h ResourceHandle) IsPresignedRequest() bool { return h.PresignedRequest != nil }
