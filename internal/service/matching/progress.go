package matching

import (
	"context"
	"fmt"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/notify"
	"service-dispatch/internal/ports/dispatchtx"
)

// MarkPickedUp records that the assigned courier collected the order from the vendor.
func (s *Service) MarkPickedUp(ctx context.Context, orderID string, courierID int64) (domain.StatusChange, error) {
	ch, _, err := s.advance(ctx, orderID, courierID, domain.OrderAssignedToDelivery, domain.OrderPickedUp, nil)
	return ch, err
}

// MarkInTransit records that the courier is heading to the customer.
func (s *Service) MarkInTransit(ctx context.Context, orderID string, courierID int64) (domain.StatusChange, error) {
	ch, _, err := s.advance(ctx, orderID, courierID, domain.OrderPickedUp, domain.OrderInTransit, nil)
	return ch, err
}

// MarkDelivered completes the delivery, credits the courier and frees them for new offers
// in the same transaction, then tells the customer.
func (s *Service) MarkDelivered(ctx context.Context, orderID string, courierID int64) (domain.StatusChange, error) {
	ch, o, err := s.advance(ctx, orderID, courierID, domain.OrderInTransit, domain.OrderDelivered,
		func(ctx context.Context, tx dispatchtx.Repository) error {
			if err := tx.IncrementDeliveries(ctx, courierID); err != nil {
				return err
			}
			return tx.UpdateCourierStatus(ctx, courierID, domain.CourierAvailable)
		})
	if err != nil {
		return domain.StatusChange{}, err
	}

	if o.CustomerID != "" {
		s.async(func() {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
			defer cancel()
			if _, err := s.notifier.Send(ctx, []string{o.CustomerID}, &notify.DeliveryCompleted{
				DeliveryID:  orderID,
				CompletedAt: ch.ChangedAt,
			}); err != nil {
				s.logger.Error("notify delivery completed", logx.String("order_id", orderID), logx.Err(err))
			}
		})
	}
	return ch, nil
}

func (s *Service) advance(
	ctx context.Context,
	orderID string,
	courierID int64,
	from, to domain.OrderStatus,
	extra func(context.Context, dispatchtx.Repository) error,
) (domain.StatusChange, domain.Order, error) {
	orderID, err := validateOrderID(orderID)
	if err != nil {
		return domain.StatusChange{}, domain.Order{}, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var (
		ch    domain.StatusChange
		order domain.Order
	)
	err = s.tx.WithTx(ctx, func(tx dispatchtx.Repository) error {
		o, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o == nil {
			return apperr.New(apperr.ErrNotFound, "order not found")
		}
		if o.DeliveryPartnerID == nil || *o.DeliveryPartnerID != courierID {
			return apperr.New(apperr.ErrForbidden, "not your delivery")
		}
		if o.Status != from {
			return apperr.New(apperr.ErrBadRequest, fmt.Sprintf("order is %s, expected %s", o.Status, from))
		}

		now := s.now()
		ok, err := tx.TransitionOrder(ctx, orderID, from, to, now)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.New(apperr.ErrConflict, "order status changed concurrently")
		}
		if extra != nil {
			if err := extra(ctx, tx); err != nil {
				return err
			}
		}
		ch = domain.StatusChange{OrderID: orderID, From: from, To: to, CourierID: courierID, ChangedAt: now}
		if err := tx.AppendStatusChange(ctx, ch); err != nil {
			return err
		}
		order = *o
		order.Status = to
		return nil
	})
	if err != nil {
		return domain.StatusChange{}, domain.Order{}, err
	}

	s.logger.Info("delivery status changed",
		logx.Event("delivery_progress"),
		logx.String("order_id", orderID),
		logx.Int64("courier_id", courierID),
		logx.String("from", string(from)),
		logx.String("to", string(to)),
	)
	return ch, order, nil
}
