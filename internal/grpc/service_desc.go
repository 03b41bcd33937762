package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "assessment.v1.AssessmentService"

// AssessmentServer is the server API for AssessmentService.
type AssessmentServer interface {
	AnalyzeProperty(context.Context, *AnalyzePropertyRequest) (*AnalyzePropertyResponse, error)
	AnalyzeBatch(context.Context, *AnalyzeBatchRequest) (*AnalyzeBatchResponse, error)
	FindComparables(context.Context, *FindComparablesRequest) (*ComparablesResponse, error)
	FindComparablesByCriteria(context.Context, *FindComparablesByCriteriaRequest) (*ComparablesResponse, error)
	GetPropertySummary(context.Context, *GetPropertySummaryRequest) (*PropertySummaryResponse, error)
	FindAppealCandidates(context.Context, *FindAppealCandidatesRequest) (*AnalysesResponse, error)
	EstimateSavings(context.Context, *EstimateSavingsRequest) (*EstimateSavingsResponse, error)
	GetAnalysisHistory(context.Context, *GetAnalysisHistoryRequest) (*AnalysesResponse, error)
}

func unaryHandler[Req, Resp any](method string, call func(AssessmentServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AssessmentServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + ServiceName + "/" + method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AssessmentServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var AssessmentServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AssessmentServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AnalyzeProperty", Handler: unaryHandler("AnalyzeProperty", AssessmentServer.AnalyzeProperty)},
		{MethodName: "AnalyzeBatch", Handler: unaryHandler("AnalyzeBatch", AssessmentServer.AnalyzeBatch)},
		{MethodName: "FindComparables", Handler: unaryHandler("FindComparables", AssessmentServer.FindComparables)},
		{MethodName: "FindComparablesByCriteria", Handler: unaryHandler("FindComparablesByCriteria", AssessmentServer.FindComparablesByCriteria)},
		{MethodName: "GetPropertySummary", Handler: unaryHandler("GetPropertySummary", AssessmentServer.GetPropertySummary)},
		{MethodName: "FindAppealCandidates", Handler: unaryHandler("FindAppealCandidates", AssessmentServer.FindAppealCandidates)},
		{MethodName: "EstimateSavings", Handler: unaryHandler("EstimateSavings", AssessmentServer.EstimateSavings)},
		{MethodName: "GetAnalysisHistory", Handler: unaryHandler("GetAnalysisHistory", AssessmentServer.GetAnalysisHistory)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "assessment/v1/assessment.proto",
}

// RegisterAssessmentServer registers srv on s.
func RegisterAssessmentServer(s grpc.ServiceRegistrar, srv AssessmentServer) {
	s.RegisterService(&AssessmentServiceDesc, srv)
}

// AssessmentClient calls AssessmentService using the JSON codec.
type AssessmentClient struct {
	cc grpc.ClientConnInterface
}

func NewAssessmentClient(cc grpc.ClientConnInterface) *AssessmentClient {
	return &AssessmentClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, c *AssessmentClient, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AssessmentClient) AnalyzeProperty(ctx context.Context, in *AnalyzePropertyRequest, opts ...grpc.CallOption) (*AnalyzePropertyResponse, error) {
	return invoke[AnalyzePropertyResponse](ctx, c, "AnalyzeProperty", in, opts)
}

func (c *AssessmentClient) AnalyzeBatch(ctx context.Context, in *AnalyzeBatchRequest, opts ...grpc.CallOption) (*AnalyzeBatchResponse, error) {
	return invoke[AnalyzeBatchResponse](ctx, c, "AnalyzeBatch", in, opts)
}

func (c *AssessmentClient) FindComparables(ctx context.Context, in *FindComparablesRequest, opts ...grpc.CallOption) (*ComparablesResponse, error) {
	return invoke[ComparablesResponse](ctx, c, "FindComparables", in, opts)
}

func (c *AssessmentClient) FindComparablesByCriteria(ctx context.Context, in *FindComparablesByCriteriaRequest, opts ...grpc.CallOption) (*ComparablesResponse, error) {
	return invoke[ComparablesResponse](ctx, c, "FindComparablesByCriteria", in, opts)
}

func (c *AssessmentClient) GetPropertySummary(ctx context.Context, in *GetPropertySummaryRequest, opts ...grpc.CallOption) (*PropertySummaryResponse, error) {
	return invoke[PropertySummaryResponse](ctx, c, "GetPropertySummary", in, opts)
}

func (c *AssessmentClient) FindAppealCandidates(ctx context.Context, in *FindAppealCandidatesRequest, opts ...grpc.CallOption) (*AnalysesResponse, error) {
	return invoke[AnalysesResponse](ctx, c, "FindAppealCandidates", in, opts)
}

func (c *AssessmentClient) EstimateSavings(ctx context.Context, in *EstimateSavingsRequest, opts ...grpc.CallOption) (*EstimateSavingsResponse, error) {
	return invoke[EstimateSavingsResponse](ctx, c, "EstimateSavings", in, opts)
}

func (c *AssessmentClient) GetAnalysisHistory(ctx context.Context, in *GetAnalysisHistoryRequest, opts ...grpc.CallOption) (*AnalysesResponse, error) {
	return invoke[AnalysesResponse](ctx, c, "GetAnalysisHistory", in, opts)
}
