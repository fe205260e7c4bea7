package store_test

import (
	"errors"
	"testing"

	"deskbridge/internal/domain"
	"deskbridge/internal/store"
)

func TestAppID_StableAcrossInstances(t *testing.T) {
	home := t.TempDir()

	var ids domain.AppIDStore = store.NewAppIDFileStore(home)
	first, err := ids.AppID()
	if err != nil {
		t.Fatalf("AppID: %v", err)
	}
	if first == "" {
		t.Fatal("empty app id")
	}

	again, err := store.NewAppIDFileStore(home).AppID()
	if err != nil {
		t.Fatalf("AppID (reopen): %v", err)
	}
	if again != first {
		t.Fatalf("app id changed across instances: %q vs %q", first, again)
	}

	other, err := store.NewAppIDFileStore(t.TempDir()).AppID()
	if err != nil {
		t.Fatalf("AppID (other install): %v", err)
	}
	if other == first {
		t.Fatal("two installs share an app id")
	}
}

func TestState_FlagsPerUser(t *testing.T) {
	var st domain.BiometricStateStore = store.NewStateFileStore(t.TempDir())

	if err := st.SetBiometricUnlockEnabled("u1", true); err != nil {
		t.Fatalf("SetBiometricUnlockEnabled: %v", err)
	}
	if err := st.SetFingerprintValidated("u1", true); err != nil {
		t.Fatalf("SetFingerprintValidated: %v", err)
	}

	if ok, err := st.BiometricUnlockEnabled("u1"); err != nil || !ok {
		t.Fatalf("u1 unlock enabled = %v, %v", ok, err)
	}
	if ok, err := st.BiometricUnlockEnabled("u2"); err != nil || ok {
		t.Fatalf("u2 unlock enabled = %v, %v", ok, err)
	}

	if err := st.SetFingerprintValidated("u1", false); err != nil {
		t.Fatalf("SetFingerprintValidated: %v", err)
	}
	if ok, _ := st.FingerprintValidated("u1"); ok {
		t.Fatal("fingerprint flag not cleared")
	}
	if ok, _ := st.BiometricUnlockEnabled("u1"); !ok {
		t.Fatal("clearing one flag reset the other")
	}
}

func TestAccounts_SaveLoadList(t *testing.T) {
	var accounts domain.AccountStore = store.NewAccountFileStore(t.TempDir())

	for _, id := range []domain.UserID{"b", "a"} {
		if err := accounts.SaveAccount(domain.Account{UserID: id, PublicKey: []byte(id)}); err != nil {
			t.Fatalf("SaveAccount: %v", err)
		}
	}
	got, ok, err := accounts.LoadAccount("a")
	if err != nil || !ok {
		t.Fatalf("LoadAccount = %v, %v", ok, err)
	}
	if string(got.PublicKey) != "a" {
		t.Fatalf("public key = %q", got.PublicKey)
	}
	if _, ok, _ := accounts.LoadAccount("zz"); ok {
		t.Fatal("unexpected account zz")
	}

	list, err := accounts.ListAccounts()
	if err != nil {
		t.Fatalf("ListAccounts: %v", err)
	}
	if len(list) != 2 || list[0].UserID != "a" || list[1].UserID != "b" {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestVault_SaveLoad_OK(t *testing.T) {
	vault := store.NewVaultFileStore(t.TempDir())
	if vault.Exists() {
		t.Fatal("fresh vault reports existing file")
	}

	key := []byte("0123456789abcdef0123456789abcdef")
	if err := vault.SaveUserKey("pass", "u1", key); err != nil {
		t.Fatalf("SaveUserKey: %v", err)
	}
	got, err := vault.LoadUserKey("pass", "u1")
	if err != nil {
		t.Fatalf("LoadUserKey: %v", err)
	}
	if string(got) != string(key) {
		t.Fatal("mismatch after load")
	}
	if !vault.Exists() {
		t.Fatal("vault file missing after save")
	}
}

func TestVault_WrongPassphrase_Fails(t *testing.T) {
	vault := store.NewVaultFileStore(t.TempDir())
	if err := vault.SaveUserKey("correct", "u1", []byte("key")); err != nil {
		t.Fatalf("SaveUserKey: %v", err)
	}
	if _, err := vault.LoadUserKey("wrong", "u1"); !errors.Is(err, store.ErrWrongPassphrase) {
		t.Fatalf("want ErrWrongPassphrase, got %v", err)
	}
	if _, err := vault.LoadUserKey("correct", "u2"); !errors.Is(err, store.ErrNoUserKey) {
		t.Fatalf("want ErrNoUserKey, got %v", err)
	}
}
