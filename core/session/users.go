package session

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"marketfront/contract"
	"marketfront/core/reconcile"
	"marketfront/core/types"
)

func (s *Session) requireAdmin(cur State, action string) error {
	if !cur.Status.IsAdmin() {
		return fmt.Errorf("%w: %s requires admin rights", ErrForbidden, action)
	}
	return nil
}

func (s *Session) requestShopOwner(ctx context.Context, cur State) (State, error) {
	if cur.Status != types.StatusShopper {
		return cur, fmt.Errorf("%w: only shoppers can request shop owner rights (status %s)", ErrForbidden, cur.Status)
	}
	evt, err := s.gateway.RequestShopOwnerStatus(ctx, cur.Account)
	if err != nil {
		return cur, err
	}
	if !types.SameAddress(evt.Addr, cur.Account) {
		return cur, inconsistent(contract.MethodRequestStoreOwnerStatus, evt.EventType(),
			"requester %s is not %s", evt.Addr.Hex(), cur.Account.Hex())
	}
	next := cur
	next.Status = types.StatusShopperWaitingApproval
	next.Users = reconcile.UpdateUserStatus(cur.Users, evt.Addr, types.StatusShopperWaitingApproval)
	return next, nil
}

func (s *Session) grantShopOwner(ctx context.Context, cur State, cmd GrantShopOwner) (State, error) {
	if err := s.requireAdmin(cur, "granting shop owner rights"); err != nil {
		return cur, err
	}
	if user, ok := cur.User(cmd.Target); ok && !user.Status.IsShopper() {
		return cur, fmt.Errorf("%w: %s is already %s", ErrInvalidArgument, cmd.Target.Hex(), user.Status)
	}
	evt, err := s.gateway.GrantShopOwnerRights(ctx, cur.Account, cmd.Target)
	if err != nil {
		return cur, err
	}
	if !types.SameAddress(evt.Addr, cmd.Target) {
		return cur, targetMismatch(contract.MethodAddStoreOwner, evt.EventType(), evt.Addr, cmd.Target)
	}
	return applyStatus(cur, evt.Addr, types.StatusShopOwner), nil
}

func (s *Session) grantAdmin(ctx context.Context, cur State, cmd GrantAdmin) (State, error) {
	if err := s.requireAdmin(cur, "granting admin rights"); err != nil {
		return cur, err
	}
	if user, ok := cur.User(cmd.Target); ok && user.Status.IsAdmin() {
		return cur, fmt.Errorf("%w: %s is already an admin", ErrInvalidArgument, cmd.Target.Hex())
	}
	evt, err := s.gateway.GrantAdminRights(ctx, cur.Account, cmd.Target)
	if err != nil {
		return cur, err
	}
	if !types.SameAddress(evt.Addr, cmd.Target) {
		return cur, targetMismatch(contract.MethodAddAdmin, evt.EventType(), evt.Addr, cmd.Target)
	}
	return applyStatus(cur, evt.Addr, types.StatusAdmin), nil
}

func (s *Session) deleteUser(ctx context.Context, cur State, cmd DeleteUser) (State, error) {
	if err := s.requireAdmin(cur, "deleting users"); err != nil {
		return cur, err
	}
	if user, ok := cur.User(cmd.Target); ok && !user.Status.IsShopOwner() {
		return cur, fmt.Errorf("%w: only shop owners can be deleted, %s is %s", ErrInvalidArgument, cmd.Target.Hex(), user.Status)
	}
	evt, err := s.gateway.DeleteUser(ctx, cur.Account, cmd.Target)
	if err != nil {
		return cur, err
	}
	if !types.SameAddress(evt.Addr, cmd.Target) {
		return cur, targetMismatch(contract.MethodDeleteUser, evt.EventType(), evt.Addr, cmd.Target)
	}
	next := cur
	next.Users = reconcile.RemoveUser(cur.Users, evt.Addr)
	if types.SameAddress(evt.Addr, cur.Account) {
		next.Status = types.StatusShopper
	}
	return next, nil
}

func (s *Session) toggleContractActive(ctx context.Context, cur State) (State, error) {
	if err := s.requireAdmin(cur, "toggling the contract"); err != nil {
		return cur, err
	}
	if _, err := s.gateway.ToggleContractActive(ctx, cur.Account); err != nil {
		return cur, err
	}
	return cur, nil
}

func (s *Session) emergencyWithdraw(ctx context.Context, cur State) (State, error) {
	if err := s.requireAdmin(cur, "emergency withdrawal"); err != nil {
		return cur, err
	}
	if _, err := s.gateway.EmergencyWithdraw(ctx, cur.Account); err != nil {
		return cur, err
	}
	return cur, nil
}

func targetMismatch(method, event string, got, want common.Address) error {
	return inconsistent(method, event, "confirmed for %s, requested %s", got.Hex(), want.Hex())
}

func applyStatus(cur State, addr common.Address, status types.UserStatus) State {
	next := cur
	next.Users = reconcile.UpdateUserStatus(cur.Users, addr, status)
	if types.SameAddress(addr, cur.Account) {
		next.Status = status
	}
	return next
}
