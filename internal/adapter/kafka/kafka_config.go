package kafka

import (
	"time"

	"github.com/IBM/sarama"
)

// fallbackVersion is used when the configured protocol version is empty or
// not understood by sarama.
var fallbackVersion = sarama.V2_6_0_0

func newConfig(clientID, version string) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = fallbackVersion
	if version != "" {
		if v, err := sarama.ParseKafkaVersion(version); err == nil {
			cfg.Version = v
		}
	}
	if clientID != "" {
		cfg.ClientID = clientID
	}
	cfg.Net.DialTimeout = 5 * time.Second
	cfg.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRange
	// only statuses published after the first join matter for live carts
	cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	cfg.Consumer.Return.Errors = true
	return cfg
}

// NewGroup joins groupID on brokers. Group errors are delivered on Errors();
// Consumer.Start drains them.
func NewGroup(brokers []string, groupID, clientID, version string) (sarama.ConsumerGroup, error) {
	return sarama.NewConsumerGroup(brokers, groupID, newConfig(clientID, version))
}
