// package transport performs the network exchange for a built request.
//
// Two backends implement [Transport]:
//
//	wire   speaks HTTP/1.1 (RFC9112) directly over a fresh connection per request,
//	       keeping the response head bytes exactly as received
//	resty  delegates to github.com/go-resty/resty/v2 over net/http and rebuilds
//	       the response head from the parsed message
//
// Both report failures as *[Error] carrying a curl compatible numeric code, so
// callers can tell "could not resolve host" from "peer certificate rejected"
// without string matching.
//
// net/http components are reused on the "semantics" part ([net/http.Header], [net/url.URL], etc.)

package transport
