package crypto

import (
	"bytes"
	"fmt"
	"io"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
)

// Prover handles proof generation and verification for DepositCircuit
type Prover struct {
	depth        int
	provingKey   groth16.ProvingKey
	verifyingKey groth16.VerifyingKey
	r1cs         constraint.ConstraintSystem
}

func compileDeposit(depth int) (constraint.ConstraintSystem, error) {
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, NewDepositCircuit(depth))
	if err != nil {
		return nil, fmt.Errorf("failed to compile circuit: %w", err)
	}
	return ccs, nil
}

// NewProver compiles the deposit circuit for a tree depth and runs a
// development Groth16 setup
func NewProver(depth int) (*Prover, error) {
	ccs, err := compileDeposit(depth)
	if err != nil {
		return nil, err
	}

	// Setup the proving and verifying keys
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("failed to setup keys: %w", err)
	}

	return &Prover{
		depth:        depth,
		provingKey:   pk,
		verifyingKey: vk,
		r1cs:         ccs,
	}, nil
}

// NewProverWithKeys compiles the deposit circuit and loads keys written by
// WriteKeys
func NewProverWithKeys(depth int, pkr, vkr io.Reader) (*Prover, error) {
	ccs, err := compileDeposit(depth)
	if err != nil {
		return nil, err
	}

	pk := groth16.NewProvingKey(ecc.BN254)
	if _, err := pk.ReadFrom(pkr); err != nil {
		return nil, fmt.Errorf("failed to read proving key: %w", err)
	}
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(vkr); err != nil {
		return nil, fmt.Errorf("failed to read verifying key: %w", err)
	}

	return &Prover{
		depth:        depth,
		provingKey:   pk,
		verifyingKey: vk,
		r1cs:         ccs,
	}, nil
}

// WriteKeys writes the proving and verifying keys
func (p *Prover) WriteKeys(pkw, vkw io.Writer) error {
	if _, err := p.provingKey.WriteRawTo(pkw); err != nil {
		return fmt.Errorf("failed to write proving key: %w", err)
	}
	if _, err := p.verifyingKey.WriteRawTo(vkw); err != nil {
		return fmt.Errorf("failed to write verifying key: %w", err)
	}
	return nil
}

// ExportSolidity writes a Solidity verifier for the verifying key
func (p *Prover) ExportSolidity(w io.Writer) error {
	if err := p.verifyingKey.ExportSolidity(w); err != nil {
		return fmt.Errorf("failed to export verifier: %w", err)
	}
	return nil
}

// Depth returns the tree depth the circuit was compiled for
func (p *Prover) Depth() int {
	return p.depth
}

// NbConstraints returns the size of the compiled circuit
func (p *Prover) NbConstraints() int {
	return p.r1cs.GetNbConstraints()
}

// GenerateProof generates a proof for the given assignment and returns the
// serialized proof and public witness
func (p *Prover) GenerateProof(w *DepositCircuit) ([]byte, []byte, error) {
	if len(w.PathElements) != p.depth {
		return nil, nil, fmt.Errorf("assignment depth %d, circuit depth %d", len(w.PathElements), p.depth)
	}

	// Create witness
	fullWitness, err := frontend.NewWitness(w, ecc.BN254.ScalarField())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create witness: %w", err)
	}

	// Generate proof
	proof, err := groth16.Prove(p.r1cs, p.provingKey, fullWitness)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate proof: %w", err)
	}

	// Serialize the proof
	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, nil, fmt.Errorf("failed to serialize proof: %w", err)
	}

	// Get public witness
	publicWitness, err := fullWitness.Public()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get public witness: %w", err)
	}
	publicWitnessBuf := new(bytes.Buffer)
	if _, err := publicWitness.WriteTo(publicWitnessBuf); err != nil {
		return nil, nil, fmt.Errorf("failed to serialize public witness: %w", err)
	}

	return buf.Bytes(), publicWitnessBuf.Bytes(), nil
}

// VerifyProof verifies a serialized proof against a serialized public witness
func (p *Prover) VerifyProof(proofBytes, publicWitnessBytes []byte) (bool, error) {
	publicWitness, err := witness.New(ecc.BN254.ScalarField())
	if err != nil {
		return false, fmt.Errorf("failed to create witness: %w", err)
	}
	if _, err := publicWitness.ReadFrom(bytes.NewReader(publicWitnessBytes)); err != nil {
		return false, fmt.Errorf("failed to deserialize public witness: %w", err)
	}

	proof := groth16.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(proofBytes)); err != nil {
		return false, fmt.Errorf("failed to deserialize proof: %w", err)
	}

	if err := groth16.Verify(proof, p.verifyingKey, publicWitness); err != nil {
		return false, fmt.Errorf("proof verification failed: %w", err)
	}

	return true, nil
}
