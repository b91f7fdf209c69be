package notify

import (
	"fmt"

	"github.com/rustyeddy/tradesync/config"
	"go.uber.org/zap"
)

// Open builds the publishers listed in cfg.Type. Several are combined
// with Multi; none yields Nop.
func Open(cfg config.NotifyConfig, log *zap.Logger) (Publisher, error) {
	var pubs Multi
	for _, t := range cfg.Types() {
		switch t {
		case "log":
			pubs = append(pubs, NewLogPublisher(log))
		case "redis":
			pubs = append(pubs, NewRedisPublisher(cfg.RedisAddr, cfg.Channel))
		default:
			_ = pubs.Close()
			return nil, fmt.Errorf("unknown notify type %q", t)
		}
	}

	switch len(pubs) {
	case 0:
		return Nop{}, nil
	case 1:
		return pubs[0], nil
	}
	return pubs, nil
}
