package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/m-lab/transportinfo"
)

const keyPrefix = "transportinfo:"

// archiveTTL bounds how long a snapshot stays joinable. Downstream
// pipelines consume within minutes; an hour leaves slack for retries.
const archiveTTL = time.Hour

// ArchivedInfo is the envelope stored in redis. Addresses are stored as
// strings because net.Addr values do not survive a JSON round trip.
type ArchivedInfo struct {
	UUID               string                       `json:"uuid"`
	RemoteAddr         string                       `json:"remote_addr,omitempty"`
	LocalAddr          string                       `json:"local_addr,omitempty"`
	ClientAddrOriginal string                       `json:"client_addr_original,omitempty"`
	Snapshot           *transportinfo.TransportInfo `json:"snapshot"`
}

// SetTransportInfo archives a final snapshot of ti under uuid.
func (c *Client) SetTransportInfo(ctx context.Context, uuid string, ti *transportinfo.TransportInfo) error {
	archived := &ArchivedInfo{
		UUID:     uuid,
		Snapshot: ti,
	}
	if ti.RemoteAddr != nil {
		archived.RemoteAddr = ti.RemoteAddr.String()
	}
	if ti.LocalAddr != nil {
		archived.LocalAddr = ti.LocalAddr.String()
	}
	if ti.ClientAddrOriginal != nil {
		archived.ClientAddrOriginal = ti.ClientAddrOriginal.String()
	}
	data, err := json.Marshal(archived)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, keyPrefix+uuid, data, archiveTTL).Err()
}

// GetTransportInfo retrieves the snapshot archived under uuid.
func (c *Client) GetTransportInfo(ctx context.Context, uuid string) (*ArchivedInfo, error) {
	data, err := c.rdb.Get(ctx, keyPrefix+uuid).Bytes()
	if err != nil {
		return nil, err
	}
	archived := &ArchivedInfo{}
	err = json.Unmarshal(data, archived)
	return archived, err
}
