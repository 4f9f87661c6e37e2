package mocks

//go:generate mockgen -package=mocks -destination=oracle.go qledger/admission Oracle
//go:generate mockgen -package=mocks -destination=keyagreement.go qledger/qkd KeyAgreement
