package treasury

// Actor identifies the caller of a mutating operation. ID is what gets
// recorded on proposals, approvals, and the ledger; Role is what the
// capability table is keyed on.
type Actor struct {
	ID   string
	Role string
}

const (
	RoleAdmin      = "admin"
	RoleOperator   = "operator"
	RoleProposer   = "proposer"
	RoleApprover   = "approver"
	RoleGovernance = "governance"
	RoleGuardian   = "guardian"
)

const (
	OpDeposit           = "treasury.deposit"
	OpUpdateAllocations = "treasury.update_allocations"
	OpReserve           = "treasury.reserve"
	OpRelease           = "treasury.release"
	OpRebalance         = "treasury.rebalance"

	OpPropose      = "treasury.propose"
	OpApprove      = "treasury.approve"
	OpCancel       = "treasury.cancel"
	OpExecute      = "treasury.execute"
	OpProposeBatch = "treasury.propose_batch"

	OpConfigureProgram  = "treasury.configure_program"
	OpDistributeProgram = "treasury.distribute_program"

	OpConfigureFunding = "treasury.configure_funding"
	OpTriggerFunding   = "treasury.trigger_funding"

	OpPause             = "treasury.pause"
	OpUnpause           = "treasury.unpause"
	OpEmergencyWithdraw = "treasury.emergency_withdraw"
	OpEmergencyRecovery = "treasury.emergency_recovery"
)

// capabilities is the single operation -> allowed roles table. Every mutating
// entry point checks it before touching state; there are no inline role
// checks anywhere else.
var capabilities = map[string][]string{
	OpDeposit:           {RoleAdmin, RoleOperator},
	OpUpdateAllocations: {RoleAdmin},
	OpReserve:           {RoleAdmin, RoleOperator},
	OpRelease:           {RoleAdmin, RoleOperator},
	OpRebalance:         {RoleAdmin},

	OpPropose:      {RoleAdmin, RoleProposer, RoleGovernance},
	OpApprove:      {RoleAdmin, RoleApprover},
	OpCancel:       {RoleAdmin, RoleProposer, RoleGovernance},
	OpExecute:      {RoleAdmin, RoleOperator, RoleApprover, RoleGuardian},
	OpProposeBatch: {RoleAdmin, RoleProposer},

	OpConfigureProgram:  {RoleAdmin},
	OpDistributeProgram: {RoleAdmin, RoleOperator},

	OpConfigureFunding: {RoleAdmin},
	OpTriggerFunding:   {RoleAdmin, RoleOperator},

	OpPause:             {RoleAdmin, RoleGuardian},
	OpUnpause:           {RoleAdmin, RoleGuardian},
	OpEmergencyWithdraw: {RoleGuardian},
	OpEmergencyRecovery: {RoleGuardian},
}

// Can reports whether the actor's role may perform op.
func (a Actor) Can(op string) bool {
	for _, role := range capabilities[op] {
		if role == a.Role {
			return true
		}
	}
	return false
}
