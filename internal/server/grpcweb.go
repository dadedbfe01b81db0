package server

import (
	"net/http"

	"github.com/improbable-eng/grpc-web/go/grpcweb"
)

// WebHandler serves the status services to browser front-ends over
// gRPC-Web. Cross-origin calls are only accepted from loopback origins.
func (s *Status) WebHandler() *grpcweb.WrappedGrpcServer {
	return grpcweb.WrapServer(s.grpcServer, grpcweb.WithOriginFunc(isLoopbackOrigin))
}

// ServeGRPCWeb routes gRPC-Web requests arriving at the gateway to w. Call
// it before Serve.
func (g *Gateway) ServeGRPCWeb(w *grpcweb.WrappedGrpcServer) {
	g.grpcWeb = w
}

func (g *Gateway) route(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.grpcWeb != nil && (g.grpcWeb.IsGrpcWebRequest(r) || g.grpcWeb.IsAcceptableGrpcCorsRequest(r)) {
			g.grpcWeb.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
