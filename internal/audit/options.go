package audit

type ProducerOption func(p *Producer)

func WithOutputTopic(topic string) ProducerOption {
	return func(p *Producer) {
		p.topic = topic
	}
}
