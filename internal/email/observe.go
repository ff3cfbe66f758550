package email

import "context"

// Observed wraps s so that report sees the error of every send.
func Observed(s Sender, report func(error)) Sender {
	return observedSender{next: s, report: report}
}

type observedSender struct {
	next   Sender
	report func(error)
}

func (o observedSender) Send(ctx context.Context, msg Message) (string, error) {
	id, err := o.next.Send(ctx, msg)
	o.report(err)
	return id, err
}
