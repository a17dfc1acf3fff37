package config

import "testing"

func TestParseAccounts(t *testing.T) {
	accounts, err := parseAccounts("Arteezy=86745912|76561198047544485, Sumail=111620041")
	if err != nil {
		t.Fatalf("parseAccounts: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(accounts))
	}
	if accounts[0].DisplayName != "Arteezy" || len(accounts[0].AccountIDs) != 2 {
		t.Errorf("unexpected first account: %+v", accounts[0])
	}
	// Steam 64-bit ids are normalized to the native space.
	if accounts[0].AccountIDs[1] != 87278757 {
		t.Errorf("steam id not converted, got %d", accounts[0].AccountIDs[1])
	}
	if accounts[1].DisplayName != "Sumail" || accounts[1].AccountIDs[0] != 111620041 {
		t.Errorf("unexpected second account: %+v", accounts[1])
	}
}

func TestParseAccountsErrors(t *testing.T) {
	for _, raw := range []string{"NoEquals", "Name=", "Name=abc", "=123"} {
		if _, err := parseAccounts(raw); err == nil {
			t.Errorf("parseAccounts(%q) should fail", raw)
		}
	}
	if accounts, err := parseAccounts(""); err != nil || accounts != nil {
		t.Errorf("empty input should yield nothing, got %v, %v", accounts, err)
	}
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("09:30")
	if err != nil || h != 9 || m != 30 {
		t.Errorf("ParseClock(09:30) = %d:%d, %v", h, m, err)
	}
	for _, raw := range []string{"930", "24:00", "12:60", "ab:cd", ""} {
		if _, _, err := ParseClock(raw); err == nil {
			t.Errorf("ParseClock(%q) should fail", raw)
		}
	}
}
