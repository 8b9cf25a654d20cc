package reporting

import (
	"context"
	"sort"
	"time"

	"github.com/finbooks/backend/internal/domain/ledger"
	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/finbooks/backend/internal/domain/tax"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Account code conventions used to classify statement lines. The chart is
// provisioned with these prefixes at tenant setup.
var (
	// cashCodePrefixes mark cash-like asset accounts (cash on hand, bank)
	cashCodePrefixes = []string{"10", "11"}
	// cogsCodePrefix marks cost-of-goods-sold expense accounts
	cogsCodePrefix = "50"
	// otherIncomeCodePrefix marks non-operating revenue (interest, disposals)
	otherIncomeCodePrefix = "45"
	// otherExpenseCodePrefix marks non-operating expenses (interest paid, write-offs)
	otherExpenseCodePrefix = "59"
)

// StatementService reads the ledger to produce financial statements. All
// reads are side-effect free; statements are computed, never stored.
type StatementService struct {
	accountRepo ledger.AccountRepository
	entryRepo   ledger.JournalEntryRepository
	configRepo  tax.TaxConfigurationRepository
	calculator  *tax.Calculator
	logger      *zap.Logger
}

// NewStatementService creates a new StatementService
func NewStatementService(
	accountRepo ledger.AccountRepository,
	entryRepo ledger.JournalEntryRepository,
	configRepo tax.TaxConfigurationRepository,
	logger *zap.Logger,
) *StatementService {
	return &StatementService{
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
		configRepo:  configRepo,
		calculator:  tax.NewCalculator(),
		logger:      logger,
	}
}

// TrialBalanceLine is one account's balance split into the debit or credit column
type TrialBalanceLine struct {
	AccountID   uuid.UUID       `json:"account_id"`
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	AccountType string          `json:"account_type"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// TrialBalanceResponse is the full trial balance report
type TrialBalanceResponse struct {
	AsOf        time.Time          `json:"as_of"`
	Lines       []TrialBalanceLine `json:"lines"`
	TotalDebit  decimal.Decimal    `json:"total_debit"`
	TotalCredit decimal.Decimal    `json:"total_credit"`
	Balanced    bool               `json:"balanced"`
}

// BalanceSheetSection groups accounts of one type with a section total
type BalanceSheetSection struct {
	Lines []StatementLine `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

// StatementLine is one account line on a statement
type StatementLine struct {
	AccountID   uuid.UUID       `json:"account_id"`
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	Amount      decimal.Decimal `json:"amount"`
}

// BalanceSheetResponse groups balances by type and checks the accounting equation
type BalanceSheetResponse struct {
	AsOf             time.Time           `json:"as_of"`
	Assets           BalanceSheetSection `json:"assets"`
	Liabilities      BalanceSheetSection `json:"liabilities"`
	Equity           BalanceSheetSection `json:"equity"`
	RetainedEarnings decimal.Decimal     `json:"retained_earnings"`
	TotalEquity      decimal.Decimal     `json:"total_equity"`
	Balanced         bool                `json:"balanced"`
}

// ProfitAndLossResponse is the income statement over a date range
type ProfitAndLossResponse struct {
	StartDate        time.Time       `json:"start_date"`
	EndDate          time.Time       `json:"end_date"`
	Revenue          []StatementLine `json:"revenue"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	CostOfGoodsSold  decimal.Decimal `json:"cost_of_goods_sold"`
	GrossProfit      decimal.Decimal `json:"gross_profit"`
	OperatingExpense decimal.Decimal `json:"operating_expenses"`
	Expenses         []StatementLine `json:"expenses"`
	OperatingProfit  decimal.Decimal `json:"operating_profit"`
	OtherIncome      decimal.Decimal `json:"other_income"`
	OtherExpenses    decimal.Decimal `json:"other_expenses"`
	ProfitBeforeTax  decimal.Decimal `json:"profit_before_tax"`
	IncomeTax        decimal.Decimal `json:"income_tax"`
	NetProfit        decimal.Decimal `json:"net_profit"`
}

// CashFlowResponse partitions cash movements by activity
type CashFlowResponse struct {
	StartDate      time.Time       `json:"start_date"`
	EndDate        time.Time       `json:"end_date"`
	Operating      decimal.Decimal `json:"operating"`
	Investing      decimal.Decimal `json:"investing"`
	Financing      decimal.Decimal `json:"financing"`
	NetChange      decimal.Decimal `json:"net_change"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
}

// VATReturnReportLine mirrors the VAT return for the reporting surface
type VATReturnReportLine struct {
	PeriodStart time.Time       `json:"period_start"`
	PeriodEnd   time.Time       `json:"period_end"`
	OutputTotal decimal.Decimal `json:"output_total"`
	InputTotal  decimal.Decimal `json:"input_total"`
	NetAmount   decimal.Decimal `json:"net_amount"`
}

// accountBalance accumulates one account's debit-positive movements
type accountBalance struct {
	account *ledger.Account
	debits  decimal.Decimal
	credits decimal.Decimal
}

// net returns the debit-positive net balance
func (b *accountBalance) net() decimal.Decimal {
	return b.debits.Sub(b.credits)
}

// naturalSign returns the balance in the account's normal-balance-positive sign
func (b *accountBalance) naturalSign() decimal.Decimal {
	if b.account.NormalBalance == ledger.BalanceSideCredit {
		return b.net().Neg()
	}
	return b.net()
}

// foldBalances sums posted lines per account over [from, to]. Reversed
// entries stay included: their gross debits and credits cancel against the
// reversal entry, which is itself posted.
func (s *StatementService) foldBalances(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (map[uuid.UUID]*accountBalance, error) {
	accounts, err := s.accountRepo.FindAllForTenant(ctx, tenantID, ledger.AccountFilter{})
	if err != nil {
		return nil, err
	}

	balances := make(map[uuid.UUID]*accountBalance, len(accounts))
	for i := range accounts {
		balances[accounts[i].ID] = &accountBalance{
			account: &accounts[i],
			debits:  decimal.Zero,
			credits: decimal.Zero,
		}
	}

	entries, err := s.entryRepo.FindPostedInRange(ctx, tenantID, from, to)
	if err != nil {
		return nil, err
	}

	for i := range entries {
		for _, line := range entries[i].Lines {
			b, ok := balances[line.AccountID]
			if !ok {
				// A posted line referencing an unknown account means the chart
				// and the journal have diverged.
				return nil, shared.NewDomainError("LEDGER_INTEGRITY",
					"Posted journal line references an account missing from the chart")
			}
			b.debits = b.debits.Add(line.Debit)
			b.credits = b.credits.Add(line.Credit)
		}
	}
	return balances, nil
}

// beginningOfTime is the lower bound for cumulative balance folds
var beginningOfTime = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// TrialBalance reports every account's balance split into debit and credit
// columns by natural sign. The two columns must reconcile; a mismatch is a
// fatal integrity error, never silently corrected.
func (s *StatementService) TrialBalance(ctx context.Context, tenantID uuid.UUID, asOf time.Time) (*TrialBalanceResponse, error) {
	balances, err := s.foldBalances(ctx, tenantID, beginningOfTime, asOf)
	if err != nil {
		return nil, err
	}

	lines := make([]TrialBalanceLine, 0, len(balances))
	totalDebit, totalCredit := decimal.Zero, decimal.Zero

	for _, b := range balances {
		net := b.net()
		if net.IsZero() && b.debits.IsZero() && b.credits.IsZero() {
			continue
		}
		line := TrialBalanceLine{
			AccountID:   b.account.ID,
			AccountCode: b.account.Code,
			AccountName: b.account.Name,
			AccountType: b.account.Type.String(),
			Debit:       decimal.Zero,
			Credit:      decimal.Zero,
		}
		if net.IsPositive() {
			line.Debit = net
			totalDebit = totalDebit.Add(net)
		} else if net.IsNegative() {
			line.Credit = net.Neg()
			totalCredit = totalCredit.Add(net.Neg())
		}
		lines = append(lines, line)
	}

	sort.Slice(lines, func(i, j int) bool { return lines[i].AccountCode < lines[j].AccountCode })

	if !totalDebit.Equal(totalCredit) {
		s.logger.Error("trial balance failed to reconcile",
			zap.String("tenant_id", tenantID.String()),
			zap.String("total_debit", totalDebit.StringFixed(2)),
			zap.String("total_credit", totalCredit.StringFixed(2)),
		)
		return nil, shared.NewDomainError("LEDGER_INTEGRITY",
			"Trial balance does not reconcile; ledger requires investigation")
	}

	return &TrialBalanceResponse{
		AsOf:        asOf,
		Lines:       lines,
		TotalDebit:  totalDebit,
		TotalCredit: totalCredit,
		Balanced:    true,
	}, nil
}

// BalanceSheet groups balances by account type. Retained earnings are the
// cumulative net profit of all revenue and expense activity to date, shown
// inside equity; the statement must satisfy assets = liabilities + equity.
func (s *StatementService) BalanceSheet(ctx context.Context, tenantID uuid.UUID, asOf time.Time) (*BalanceSheetResponse, error) {
	balances, err := s.foldBalances(ctx, tenantID, beginningOfTime, asOf)
	if err != nil {
		return nil, err
	}

	var assets, liabilities, equity BalanceSheetSection
	assets.Total, liabilities.Total, equity.Total = decimal.Zero, decimal.Zero, decimal.Zero
	retained := decimal.Zero

	for _, b := range balances {
		amount := b.naturalSign()
		switch b.account.Type {
		case ledger.AccountTypeAsset:
			appendSectionLine(&assets, b, amount)
		case ledger.AccountTypeLiability:
			appendSectionLine(&liabilities, b, amount)
		case ledger.AccountTypeEquity:
			appendSectionLine(&equity, b, amount)
		case ledger.AccountTypeRevenue:
			retained = retained.Add(amount)
		case ledger.AccountTypeExpense:
			retained = retained.Sub(amount)
		}
	}

	sortSection(&assets)
	sortSection(&liabilities)
	sortSection(&equity)

	totalEquity := equity.Total.Add(retained)
	balanced := assets.Total.Equal(liabilities.Total.Add(totalEquity))
	if !balanced {
		s.logger.Error("balance sheet violates the accounting equation",
			zap.String("tenant_id", tenantID.String()),
			zap.String("assets", assets.Total.StringFixed(2)),
			zap.String("liabilities", liabilities.Total.StringFixed(2)),
			zap.String("equity", totalEquity.StringFixed(2)),
		)
		return nil, shared.NewDomainError("LEDGER_INTEGRITY",
			"Balance sheet does not balance; ledger requires investigation")
	}

	return &BalanceSheetResponse{
		AsOf:             asOf,
		Assets:           assets,
		Liabilities:      liabilities,
		Equity:           equity,
		RetainedEarnings: retained,
		TotalEquity:      totalEquity,
		Balanced:         balanced,
	}, nil
}

func appendSectionLine(section *BalanceSheetSection, b *accountBalance, amount decimal.Decimal) {
	if amount.IsZero() {
		return
	}
	section.Lines = append(section.Lines, StatementLine{
		AccountID:   b.account.ID,
		AccountCode: b.account.Code,
		AccountName: b.account.Name,
		Amount:      amount,
	})
	section.Total = section.Total.Add(amount)
}

func sortSection(section *BalanceSheetSection) {
	sort.Slice(section.Lines, func(i, j int) bool {
		return section.Lines[i].AccountCode < section.Lines[j].AccountCode
	})
}

// ProfitAndLoss sums revenue and expense movements within the range. Income
// tax is computed once from profit before tax and added as an expense line,
// not iterated to a fixed point.
func (s *StatementService) ProfitAndLoss(ctx context.Context, tenantID uuid.UUID, start, end time.Time) (*ProfitAndLossResponse, error) {
	balances, err := s.foldBalances(ctx, tenantID, start, end)
	if err != nil {
		return nil, err
	}

	var revenueLines, expenseLines []StatementLine
	totalRevenue, cogs, opex := decimal.Zero, decimal.Zero, decimal.Zero
	otherIncome, otherExpenses := decimal.Zero, decimal.Zero

	for _, b := range balances {
		movement := b.naturalSign()
		if movement.IsZero() {
			continue
		}
		line := StatementLine{
			AccountID:   b.account.ID,
			AccountCode: b.account.Code,
			AccountName: b.account.Name,
			Amount:      movement,
		}
		switch b.account.Type {
		case ledger.AccountTypeRevenue:
			revenueLines = append(revenueLines, line)
			if hasPrefix(b.account.Code, otherIncomeCodePrefix) {
				otherIncome = otherIncome.Add(movement)
			} else {
				totalRevenue = totalRevenue.Add(movement)
			}
		case ledger.AccountTypeExpense:
			expenseLines = append(expenseLines, line)
			switch {
			case hasPrefix(b.account.Code, cogsCodePrefix):
				cogs = cogs.Add(movement)
			case hasPrefix(b.account.Code, otherExpenseCodePrefix):
				otherExpenses = otherExpenses.Add(movement)
			default:
				opex = opex.Add(movement)
			}
		}
	}

	sort.Slice(revenueLines, func(i, j int) bool { return revenueLines[i].AccountCode < revenueLines[j].AccountCode })
	sort.Slice(expenseLines, func(i, j int) bool { return expenseLines[i].AccountCode < expenseLines[j].AccountCode })

	grossProfit := totalRevenue.Sub(cogs)
	operatingProfit := grossProfit.Sub(opex)
	profitBeforeTax := operatingProfit.Add(otherIncome).Sub(otherExpenses)

	incomeTax := decimal.Zero
	if profitBeforeTax.IsPositive() {
		config, err := s.configRepo.FindByTenant(ctx, tenantID)
		if err != nil && !shared.IsDomainErrorWithCode(err, "NOT_FOUND") {
			return nil, err
		}
		if config != nil && len(config.Brackets) > 0 {
			incomeTax, err = s.calculator.IncomeTax(profitBeforeTax, config.Brackets)
			if err != nil {
				return nil, err
			}
		}
	}

	return &ProfitAndLossResponse{
		StartDate:        start,
		EndDate:          end,
		Revenue:          revenueLines,
		TotalRevenue:     totalRevenue,
		CostOfGoodsSold:  cogs,
		GrossProfit:      grossProfit,
		OperatingExpense: opex,
		Expenses:         expenseLines,
		OperatingProfit:  operatingProfit,
		OtherIncome:      otherIncome,
		OtherExpenses:    otherExpenses,
		ProfitBeforeTax:  profitBeforeTax,
		IncomeTax:        incomeTax,
		NetProfit:        profitBeforeTax.Sub(incomeTax),
	}, nil
}

// CashFlow partitions entries touching cash-like accounts into operating,
// investing and financing by counter-account type, reconciling to the net
// cash balance change over the range.
func (s *StatementService) CashFlow(ctx context.Context, tenantID uuid.UUID, start, end time.Time) (*CashFlowResponse, error) {
	accounts, err := s.accountRepo.FindAllForTenant(ctx, tenantID, ledger.AccountFilter{})
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*ledger.Account, len(accounts))
	for i := range accounts {
		byID[accounts[i].ID] = &accounts[i]
	}

	entries, err := s.entryRepo.FindPostedInRange(ctx, tenantID, start, end)
	if err != nil {
		return nil, err
	}

	operating, investing, financing := decimal.Zero, decimal.Zero, decimal.Zero

	for i := range entries {
		entry := &entries[i]
		cashDelta := decimal.Zero
		counterTypes := make(map[ledger.AccountType]decimal.Decimal)

		for _, line := range entry.Lines {
			account, ok := byID[line.AccountID]
			if !ok {
				return nil, shared.NewDomainError("LEDGER_INTEGRITY",
					"Posted journal line references an account missing from the chart")
			}
			delta := line.Debit.Sub(line.Credit)
			if isCashLike(account) {
				cashDelta = cashDelta.Add(delta)
			} else {
				counterTypes[account.Type] = counterTypes[account.Type].Add(delta.Abs())
			}
		}
		if cashDelta.IsZero() {
			continue
		}

		switch dominantCounterType(counterTypes) {
		case ledger.AccountTypeRevenue, ledger.AccountTypeExpense:
			operating = operating.Add(cashDelta)
		case ledger.AccountTypeAsset:
			investing = investing.Add(cashDelta)
		case ledger.AccountTypeLiability, ledger.AccountTypeEquity:
			financing = financing.Add(cashDelta)
		default:
			// Cash-to-cash transfer: no external movement.
		}
	}

	opening, err := s.cashBalance(ctx, tenantID, beginningOfTime, start.Add(-time.Nanosecond))
	if err != nil {
		return nil, err
	}
	netChange := operating.Add(investing).Add(financing)

	return &CashFlowResponse{
		StartDate:      start,
		EndDate:        end,
		Operating:      operating,
		Investing:      investing,
		Financing:      financing,
		NetChange:      netChange,
		OpeningBalance: opening,
		ClosingBalance: opening.Add(netChange),
	}, nil
}

// cashBalance sums all cash-like account balances over [from, to]
func (s *StatementService) cashBalance(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	balances, err := s.foldBalances(ctx, tenantID, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, b := range balances {
		if isCashLike(b.account) {
			total = total.Add(b.net())
		}
	}
	return total, nil
}

// counterTypePriority fixes the evaluation order so a gross-movement tie
// always classifies the same way: operating before investing before financing.
var counterTypePriority = []ledger.AccountType{
	ledger.AccountTypeRevenue,
	ledger.AccountTypeExpense,
	ledger.AccountTypeAsset,
	ledger.AccountTypeLiability,
	ledger.AccountTypeEquity,
}

// dominantCounterType picks the counter-account type with the largest gross
// movement, deciding the entry's activity classification.
func dominantCounterType(counterTypes map[ledger.AccountType]decimal.Decimal) ledger.AccountType {
	var dominant ledger.AccountType
	max := decimal.Zero
	for _, accountType := range counterTypePriority {
		gross, ok := counterTypes[accountType]
		if !ok {
			continue
		}
		if gross.GreaterThan(max) {
			max = gross
			dominant = accountType
		}
	}
	return dominant
}

func isCashLike(a *ledger.Account) bool {
	if a.Type != ledger.AccountTypeAsset {
		return false
	}
	for _, prefix := range cashCodePrefixes {
		if hasPrefix(a.Code, prefix) {
			return true
		}
	}
	return false
}

func hasPrefix(code, prefix string) bool {
	return len(code) >= len(prefix) && code[:len(prefix)] == prefix
}
