package domain

import "testing"

func TestMessageStatus_Transitions(t *testing.T) {
	if !StatusPendingPhysical.CanTransition(StatusMailed) {
		t.Fatalf("pending_physical -> mailed must be allowed")
	}
	for _, from := range []MessageStatus{StatusSent, StatusMailed, StatusReceived} {
		for _, to := range []MessageStatus{StatusSent, StatusPendingPhysical, StatusMailed, StatusReceived} {
			if from.CanTransition(to) {
				t.Fatalf("%s -> %s must not be allowed", from, to)
			}
		}
	}
	if MessageStatus("lost").Valid() {
		t.Fatalf("unknown status reported valid")
	}
}

func TestInitialStatus(t *testing.T) {
	cases := []struct {
		sender   SenderKind
		delivery DeliveryKind
		want     MessageStatus
	}{
		{SenderUser, DeliveryDigital, StatusSent},
		{SenderCreature, DeliveryDigital, StatusSent},
		{SenderCreature, DeliveryPhysical, StatusPendingPhysical},
		{SenderUser, DeliveryPhysical, StatusReceived},
	}
	for _, c := range cases {
		if got := InitialStatus(c.sender, c.delivery); got != c.want {
			t.Fatalf("InitialStatus(%s,%s) = %s; want %s", c.sender, c.delivery, got, c.want)
		}
	}
}

func TestCreatureState_Transitions(t *testing.T) {
	if !CreatureIdle.CanTransition(CreatureWaitingForLetter) {
		t.Fatalf("idle -> waiting_for_letter must be allowed")
	}
	if CreatureIdle.CanTransition(CreatureAwaitingReply) {
		t.Fatalf("idle -> awaiting_reply must not be allowed")
	}
	src := CreatureWaitingForLetter.Sources()
	if len(src) != 2 {
		t.Fatalf("sources of waiting_for_letter = %v; want idle and awaiting_reply", src)
	}
	if CreatureState("asleep").Valid() {
		t.Fatalf("unknown state reported valid")
	}
}

func TestPurchaseStatus_OneWay(t *testing.T) {
	if !PurchasePending.CanTransition(PurchaseCompleted) {
		t.Fatalf("pending -> completed must be allowed")
	}
	if PurchaseCompleted.CanTransition(PurchasePending) {
		t.Fatalf("completed -> pending must not be allowed")
	}
}

func TestKinds_Valid(t *testing.T) {
	if !DeliveryDigital.Valid() || !DeliveryPhysical.Valid() || DeliveryKind("pigeon").Valid() {
		t.Fatalf("delivery kind validity wrong")
	}
	if !CreditDigital.Valid() || CreditKind("gold").Valid() {
		t.Fatalf("credit kind validity wrong")
	}
	if !SenderUser.Valid() || SenderKind("owl").Valid() {
		t.Fatalf("sender kind validity wrong")
	}
	if CreditKindFor(DeliveryPhysical) != CreditPhysical || CreditKindFor(DeliveryDigital) != CreditDigital {
		t.Fatalf("CreditKindFor mapping wrong")
	}
}
