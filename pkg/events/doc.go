// Package events publishes sent-message events to Kafka.
//
// KafkaPublisher.Publish has the mailvault.AfterSendHook signature:
//
//	pub, err := events.NewKafkaPublisher(cfg, events.WithLogger(log))
//	if err != nil {
//		return err
//	}
//	defer pub.Close()
//
//	p := mailvault.New(mcfg, templates, sent, sender, mailvault.WithAfterSend(pub.Publish))
//
// Each event is a JSON SentEvent keyed by the delivery ID.
package events
