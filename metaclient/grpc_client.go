package metaclient

import (
	"context"

	"google.golang.org/grpc"

	"github.com/aetherdb/engine/cluster"
)

const (
	serviceName = "aetherdb.meta.v1.MetaService"
	methodSendHeartbeat = "/" + serviceName + "/SendHeartbeat"
	methodGetTablesOfShard = "/" + serviceName + "/GetTablesOfShards"
	methodGetNodes = "/" + serviceName + "/GetNodes"
	methodRouteTables = "/" + serviceName + "/RouteTables"
)

// GRPCClient is the production cluster.MetaClient: a thin wrapper over a
// *grpc.ClientConn, grounded on api/server.go's google.golang.org/grpc usage
// mirrored client-side.
type GRPCClient struct {
	conn *grpc.ClientConn
}

// Dial opens a gRPC connection to the meta service at addr. Callers close
// the returned client's underlying connection via Close.
func Dial(addr string, opts...grpc.DialOption) (*GRPCClient, error) {
	conn, err := grpc.Dial(addr, opts...)
	if err != nil {
		return nil, err
	}
	return &GRPCClient{conn: conn}, nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

type sendHeartbeatRequest struct {
	Shards []cluster.ShardInfo
}

type sendHeartbeatResponse struct{}

func (c *GRPCClient) SendHeartbeat(ctx context.Context, shards []cluster.ShardInfo) error {
	req := &sendHeartbeatRequest{Shards: shards}
	resp := &sendHeartbeatResponse{}
	return c.conn.Invoke(ctx, methodSendHeartbeat, req, resp, grpc.CallContentSubtype(codecName))
}

type getTablesOfShardsRequest struct {
	ShardIDs []uint64
}

type getTablesOfShardsResponse struct {
	TablesOfShards map[uint64]cluster.TablesOfShard
}

func (c *GRPCClient) GetTablesOfShards(ctx context.Context, shardIDs []uint64) (map[uint64]cluster.TablesOfShard, error) {
	req := &getTablesOfShardsRequest{ShardIDs: shardIDs}
	resp := &getTablesOfShardsResponse{}
	if err := c.conn.Invoke(ctx, methodGetTablesOfShard, req, resp, grpc.CallContentSubtype(codecName)); err != nil {
		return nil, err
	}
	return resp.TablesOfShards, nil
}

func (c *GRPCClient) GetNodes(ctx context.Context, req cluster.GetNodesRequest) (cluster.GetNodesResponse, error) {
	resp := &cluster.GetNodesResponse{}
	if err := c.conn.Invoke(ctx, methodGetNodes, &req, resp, grpc.CallContentSubtype(codecName)); err != nil {
		return cluster.GetNodesResponse{}, err
	}
	return *resp, nil
}

func (c *GRPCClient) RouteTables(ctx context.Context, req cluster.RouteTablesRequest) (cluster.RouteTablesResponse, error) {
	resp := &cluster.RouteTablesResponse{}
	if err := c.conn.Invoke(ctx, methodRouteTables, &req, resp, grpc.CallContentSubtype(codecName)); err != nil {
		return cluster.RouteTablesResponse{}, err
	}
	return *resp, nil
}

var _ cluster.MetaClient = (*GRPCClient)(nil)
