package controllers

import (
	"errors"

	"github.com/astroconnect/backend/config"
	"github.com/astroconnect/backend/models"
	"github.com/astroconnect/backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// lockForUpdate adds row-level locking on dialects that support it. SQLite,
// used by the test suite, has no FOR UPDATE and serializes writers on its own.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// getWalletForUpdate fetches a user's wallet with the row locked for the
// duration of tx so concurrent money movements on the same wallet serialize.
// The wallet is created lazily with zero balance on first access.
func getWalletForUpdate(tx *gorm.DB, userID uint, createIfMissing bool) (*models.Wallet, error) {
	var wallet models.Wallet
	err := lockForUpdate(tx).Where("user_id = ?", userID).First(&wallet).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if !createIfMissing {
			return nil, utils.NotFoundError("Wallet not found", err)
		}
		wallet = models.Wallet{
			UserID:   userID,
			Balance:  decimal.Zero,
			IsActive: true,
		}
		if err := tx.Create(&wallet).Error; err != nil {
			return nil, err
		}
	}
	return &wallet, nil
}

// creditWalletTx applies a credit inside the caller's transaction. The wallet
// row update and the ledger insert commit or roll back together.
func creditWalletTx(tx *gorm.DB, userID uint, amount decimal.Decimal, description, method, reference string) (*models.Wallet, *models.WalletTransaction, error) {
	if !amount.IsPositive() {
		return nil, nil, utils.BadRequestError("Amount must be positive", nil)
	}

	wallet, err := getWalletForUpdate(tx, userID, true)
	if err != nil {
		return nil, nil, err
	}

	before := wallet.Balance
	after := before.Add(amount)
	if err := tx.Model(wallet).Updates(map[string]interface{}{
		"balance":        after,
		"total_recharge": wallet.TotalRecharge.Add(amount),
	}).Error; err != nil {
		return nil, nil, err
	}
	wallet.Balance = after
	wallet.TotalRecharge = wallet.TotalRecharge.Add(amount)

	transaction := models.WalletTransaction{
		WalletID:      wallet.ID,
		UserID:        userID,
		Amount:        amount,
		Type:          models.TransactionTypeCredit,
		Status:        models.TransactionStatusCompleted,
		PaymentMethod: method,
		BalanceBefore: before,
		BalanceAfter:  after,
		Description:   description,
		Reference:     reference,
	}
	if err := tx.Create(&transaction).Error; err != nil {
		return nil, nil, err
	}

	return wallet, &transaction, nil
}

// debitWalletTx applies a debit inside the caller's transaction. The balance
// check and the update run against the same locked row, so two concurrent
// debits can never both observe a sufficient balance.
func debitWalletTx(tx *gorm.DB, userID uint, amount decimal.Decimal, description, method, reference string) (*models.Wallet, *models.WalletTransaction, error) {
	if !amount.IsPositive() {
		return nil, nil, utils.BadRequestError("Amount must be positive", nil)
	}

	wallet, err := getWalletForUpdate(tx, userID, false)
	if err != nil {
		return nil, nil, err
	}

	if wallet.Balance.LessThan(amount) {
		return nil, nil, &utils.InsufficientFundsError{
			Required:  amount,
			Available: wallet.Balance,
		}
	}

	before := wallet.Balance
	after := before.Sub(amount)
	if err := tx.Model(wallet).Updates(map[string]interface{}{
		"balance":     after,
		"total_spent": wallet.TotalSpent.Add(amount),
	}).Error; err != nil {
		return nil, nil, err
	}
	wallet.Balance = after
	wallet.TotalSpent = wallet.TotalSpent.Add(amount)

	transaction := models.WalletTransaction{
		WalletID:      wallet.ID,
		UserID:        userID,
		Amount:        amount,
		Type:          models.TransactionTypeDebit,
		Status:        models.TransactionStatusCompleted,
		PaymentMethod: method,
		BalanceBefore: before,
		BalanceAfter:  after,
		Description:   description,
		Reference:     reference,
	}
	if err := tx.Create(&transaction).Error; err != nil {
		return nil, nil, err
	}

	return wallet, &transaction, nil
}

// CreditWallet credits a user's wallet inside its own database transaction.
func CreditWallet(userID uint, amount decimal.Decimal, description, method, reference string) (*models.Wallet, *models.WalletTransaction, error) {
	var (
		wallet      *models.Wallet
		transaction *models.WalletTransaction
	)
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var txErr error
		wallet, transaction, txErr = creditWalletTx(tx, userID, amount, description, method, reference)
		return txErr
	})
	if err != nil {
		return nil, nil, err
	}
	return wallet, transaction, nil
}

// DebitWallet debits a user's wallet inside its own database transaction.
func DebitWallet(userID uint, amount decimal.Decimal, description, method, reference string) (*models.Wallet, *models.WalletTransaction, error) {
	var (
		wallet      *models.Wallet
		transaction *models.WalletTransaction
	)
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var txErr error
		wallet, transaction, txErr = debitWalletTx(tx, userID, amount, description, method, reference)
		return txErr
	})
	if err != nil {
		return nil, nil, err
	}
	return wallet, transaction, nil
}

// getOrCreateWallet retrieves or creates a wallet outside any billing
// transaction, for read-only views.
func getOrCreateWallet(userID uint) (*models.Wallet, error) {
	var wallet *models.Wallet
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var txErr error
		wallet, txErr = getWalletForUpdate(tx, userID, true)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}
